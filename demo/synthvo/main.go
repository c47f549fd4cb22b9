// Command synthvo trains a recurrent odometry network on
// synthetic frame-pair features.
//
// Each input is the true relative pose plus noise, so the
// network only has to learn to denoise and copy it, but the
// training loop is the same one used for real features.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvo"
	"github.com/unixpickle/anyvo/curriculum"
	"github.com/unixpickle/anyvo/votrain"
	"github.com/unixpickle/anyvo/vonet"
	"github.com/unixpickle/rip"
	"gonum.org/v1/gonum/stat"
)

const noiseFeatures = 2

var Creator anyvec.Creator

func main() {
	var cfg votrain.Config
	var outDir string
	var numTrain, numVal, seqLen, hidden int
	var stepSize, noise float64
	var useCurriculum bool

	flag.IntVar(&cfg.MaxEpochs, "epochs", 20, "maximum number of epochs")
	flag.BoolVar(&cfg.Debug, "debug", false, "limit every epoch to a few samples")
	flag.IntVar(&cfg.DebugIters, "debugiters", 20, "samples per epoch in debug mode")
	flag.IntVar(&cfg.WindowSize, "window", 16, "truncated back-propagation window")
	flag.Float64Var(&cfg.GradClip, "clip", 1, "gradient norm limit (0 to disable)")
	flag.Float64Var(&cfg.RotScale, "rotscale", 10, "rotation loss scale")
	flag.Float64Var(&cfg.WeightReg, "reg", 0, "parameter norm penalty")
	flag.StringVar(&outDir, "out", "", "output directory (default: runs/<random id>)")
	flag.IntVar(&numTrain, "train", 8, "number of training sequences")
	flag.IntVar(&numVal, "val", 2, "number of validation sequences")
	flag.IntVar(&seqLen, "seqlen", 200, "frames per synthetic sequence")
	flag.IntVar(&hidden, "hidden", 32, "hidden state size")
	flag.Float64Var(&stepSize, "step", 1e-3, "Adam step size")
	flag.Float64Var(&noise, "noise", 0.01, "feature noise")
	flag.BoolVar(&useCurriculum, "curriculum", true, "grow training sequences gradually")
	flag.Parse()

	if outDir == "" {
		outDir = filepath.Join("runs", uuid.New().String())
	}
	cfg.TrajectoryDir = filepath.Join(outDir, "trajectories")
	checkpointPath := filepath.Join(outDir, "checkpoint")
	curriculumPath := filepath.Join(outDir, "curriculum")

	log.Println("Setting up...")
	Creator = anyvec32.CurrentCreator()
	gen := rand.New(rand.NewSource(1337))
	trainSeqs := synthSequences(gen, 0, numTrain, seqLen, noise)
	valSeqs := synthSequences(gen, numTrain, numVal, seqLen, noise)

	var trainSet anyvo.SampleSource = trainSeqs
	var cur *curriculum.Curriculum
	if useCurriculum {
		cur = curriculum.Default()
		chunked, err := anyvo.NewChunkedSource(trainSeqs, cur.Len)
		if err != nil {
			log.Fatal(err)
		}
		cur.Target = chunked
		trainSet = chunked
	}

	net := vonet.New(Creator, vonet.PoseSize*2+noiseFeatures, hidden)
	opt := &votrain.SGD{
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(stepSize),
	}

	var startEpoch int
	if _, err := os.Stat(checkpointPath); err == nil {
		log.Println("Loading checkpoint...")
		startEpoch, err = votrain.LoadCheckpoint(checkpointPath, &net, opt)
		if err != nil {
			log.Fatal(err)
		}
		startEpoch++
		if cur != nil {
			if _, err := os.Stat(curriculumPath); err == nil {
				if err := cur.Load(curriculumPath); err != nil {
					log.Fatal(err)
				}
				log.Printf("Resuming curriculum at length %d", cur.Len)
			}
		}
	}

	trainer, err := votrain.NewTrainer(&cfg, net, trainSet, valSeqs, opt)
	if err != nil {
		log.Fatal(err)
	}
	trainer.Epoch = startEpoch
	trainer.StatusFunc = func(s *votrain.WindowStatus) {
		if s.Validation {
			log.Printf("epoch %d: validation seq %d: total=%f", s.Epoch, s.SeqID, s.Total)
		} else if s.EndOfSeq {
			log.Printf("epoch %d: window %d-%d: total=%f grad=%f", s.Epoch, s.Start,
				s.Start+s.Samples, s.Total, s.GradNorm)
		}
	}

	var epochs []int
	var trainMeans, valMeans []float64

	log.Println("Press ctrl+c once to stop...")
	stop := rip.NewRIP().Chan()
	for !trainer.Done() {
		select {
		case <-stop:
			log.Println("Stopping...")
			return
		default:
		}

		_, _, total, err := trainer.TrainEpoch()
		if err != nil {
			log.Fatal(err)
		}
		trainMean := stat.Mean(total, nil)
		if cur != nil {
			cur.Step(trainMean)
			log.Printf("epoch %d: curriculum length %d", trainer.Epoch, cur.Len)
		}

		valRot, valTrans, _, err := trainer.Validate()
		if err != nil {
			log.Fatal(err)
		}
		var valLog anyvo.LossLog
		for i := range valRot {
			valLog.Add(valRot[i], valTrans[i])
		}
		_, _, mean := valLog.Means()
		_, _, sum := valLog.Sums()
		log.Printf("epoch %d: validation mean=%f sum=%f", trainer.Epoch, mean, sum)
		epochs = append(epochs, trainer.Epoch)
		trainMeans = append(trainMeans, trainMean)
		valMeans = append(valMeans, mean)

		if err := os.MkdirAll(outDir, 0755); err != nil {
			log.Fatal(err)
		}
		if err := votrain.SaveCheckpoint(checkpointPath, net, opt, trainer.Epoch); err != nil {
			log.Fatal(err)
		}
		if cur != nil {
			if err := cur.Save(curriculumPath); err != nil {
				log.Fatal(err)
			}
		}
		plotPath := filepath.Join(outDir, "loss.png")
		if err := saveLossPlot(plotPath, epochs, trainMeans, valMeans); err != nil {
			log.Println("Failed to plot losses:", err)
		}
		trainer.Epoch++
	}
	fmt.Println("Trajectories saved to", cfg.TrajectoryDir)
}

// synthSequences generates sequences of smooth random
// motion.
// Every input is the true pose followed by noise features,
// with noise added throughout.
func synthSequences(gen *rand.Rand, firstID, count, length int,
	noise float64) anyvo.SliceSource {
	var res anyvo.SliceSource
	for seq := 0; seq < count; seq++ {
		pose := make([]float64, vonet.PoseSize*2)
		for i := 0; i < length; i++ {
			for j := range pose {
				pose[j] = 0.9*pose[j] + 0.1*gen.NormFloat64()
			}
			input := make([]float64, len(pose)+noiseFeatures)
			for j := range input {
				if j < len(pose) {
					input[j] = pose[j]
				}
				input[j] += noise * gen.NormFloat64()
			}
			res = append(res, &anyvo.Sample{
				Input:       vector(input),
				Rotation:    vector(pose[:vonet.PoseSize]),
				Translation: vector(pose[vonet.PoseSize:]),
				SeqID:       firstID + seq,
				Frame1:      i,
				Frame2:      i + 1,
				EndOfSeq:    i == length-1,
			})
		}
	}
	return res
}

func vector(x []float64) anyvec.Vector {
	return Creator.MakeVectorData(Creator.MakeNumericList(x))
}
