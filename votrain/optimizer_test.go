package votrain

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/anyvo"
	"github.com/unixpickle/anyvo/vonet"
	"gonum.org/v1/gonum/stat"
)

type epochRater struct {
	Epochs []float64
}

func (e *epochRater) Rate(epoch float64) float64 {
	e.Epochs = append(e.Epochs, epoch)
	return 0.5
}

func TestLossAccumulator(t *testing.T) {
	var l LossAccumulator
	v := anydiff.NewVar(anyvec64.MakeVectorData([]float64{2}))
	g := anydiff.NewGrad(v)
	l.Backward(g)
	if anyvo.Float64s(g[v].Data())[0] != 0 {
		t.Error("empty backward changed gradient")
	}

	l.Add(anydiff.Scale(v, 3.0), v)
	l.Add(v, anydiff.Square(v))
	l.AddRegularizer(anydiff.Scale(v, 0.5))
	if l.Len() != 2 {
		t.Errorf("expected length 2 but got %d", l.Len())
	}
	rot, trans, reg, total := l.Values()
	if rot != 8 || trans != 6 || reg != 1 || total != 15 {
		t.Errorf("unexpected values %f %f %f %f", rot, trans, reg, total)
	}

	// d/dv of 3v + v + v + v^2 + v/2.
	l.Backward(g)
	if actual := anyvo.Float64s(g[v].Data())[0]; math.Abs(actual-9.5) > 1e-9 {
		t.Errorf("expected gradient 9.5 but got %f", actual)
	}

	l.Reset()
	if l.Len() != 0 || l.Total() != nil {
		t.Error("reset did not empty accumulator")
	}
}

func TestClipGrad(t *testing.T) {
	v1 := anydiff.NewVar(anyvec64.MakeVector(1))
	v2 := anydiff.NewVar(anyvec64.MakeVector(1))
	g := anydiff.Grad{
		v1: anyvec64.MakeVectorData([]float64{3}),
		v2: anyvec64.MakeVectorData([]float64{4}),
	}
	if norm := ClipGrad(g, 10); norm != 5 {
		t.Errorf("expected norm 5 but got %f", norm)
	}
	if GradNorm(g) != 5 {
		t.Error("gradient below the limit was clipped")
	}
	if norm := ClipGrad(g, 1); norm != 5 {
		t.Errorf("expected norm 5 but got %f", norm)
	}
	if norm := GradNorm(g); math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected clipped norm 1 but got %f", norm)
	}
	ratio := anyvo.Float64s(g[v1].Data())[0] / anyvo.Float64s(g[v2].Data())[0]
	if math.Abs(ratio-0.75) > 1e-9 {
		t.Errorf("clipping changed direction: ratio %f", ratio)
	}
}

func TestSGD(t *testing.T) {
	v := anydiff.NewVar(anyvec64.MakeVectorData([]float64{1, 2}))
	rater := &epochRater{}
	s := &SGD{Rater: rater, EpochSize: 2}
	for i := 0; i < 3; i++ {
		s.Step(anydiff.Grad{v: anyvec64.MakeVectorData([]float64{1, -1})})
	}
	expected := []float64{-0.5, 3.5}
	for i, x := range anyvo.Float64s(v.Vector.Data()) {
		if math.Abs(x-expected[i]) > 1e-9 {
			t.Errorf("component %d: expected %f but got %f", i, expected[i], x)
		}
	}
	if s.NumSteps != 3 {
		t.Errorf("expected 3 steps but got %d", s.NumSteps)
	}
	expectedEpochs := []float64{0, 0.5, 1}
	for i, e := range expectedEpochs {
		if rater.Epochs[i] != e {
			t.Errorf("step %d: expected epoch %f but got %f", i, e, rater.Epochs[i])
		}
	}

	s.Step(anydiff.Grad{})
	if s.NumSteps != 3 {
		t.Error("empty gradient counted as a step")
	}
}

func TestCheckpoint(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	net := vonet.New(c, 4, 3)
	opt := &SGD{Transformer: &anysgd.Adam{}, Rater: anysgd.ConstRater(0.01), NumSteps: 17}
	path := filepath.Join(t.TempDir(), "checkpoint")
	if err := SaveCheckpoint(path, net, opt, 5); err != nil {
		t.Fatal(err)
	}

	var loaded *vonet.Net
	newOpt := &SGD{Transformer: &anysgd.Adam{}}
	epoch, err := LoadCheckpoint(path, &loaded, newOpt)
	if err != nil {
		t.Fatal(err)
	}
	if epoch != 5 || newOpt.NumSteps != 17 {
		t.Errorf("expected epoch 5 and 17 steps but got %d and %d", epoch, newOpt.NumSteps)
	}

	in := anyvec64.MakeVectorData([]float64{1, -1, 0.5, 2})
	rot, trans, err := net.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	rot1, trans1, err := loaded.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	expected := append(anyvo.Float64s(rot.Output().Data()), anyvo.Float64s(trans.Output().Data())...)
	actual := append(anyvo.Float64s(rot1.Output().Data()), anyvo.Float64s(trans1.Output().Data())...)
	for i, x := range expected {
		if math.Abs(x-actual[i]) > 1e-9 {
			t.Errorf("output %d: expected %f but got %f", i, x, actual[i])
		}
	}

	if _, err := LoadCheckpoint(filepath.Join(t.TempDir(), "missing"), &loaded, newOpt); err == nil {
		t.Error("expected error for missing checkpoint")
	}
}

func TestTrainerLearns(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	var source anyvo.SliceSource
	for seq := 0; seq < 2; seq++ {
		for i := 0; i < 5; i++ {
			source = append(source, &anyvo.Sample{
				Input:       c.MakeVectorData([]float64{1, float64(i) / 5}),
				Rotation:    c.MakeVectorData([]float64{0.1, 0.2, 0.3}),
				Translation: c.MakeVectorData([]float64{1, -1, 0.5}),
				SeqID:       seq,
				Frame1:      i,
				Frame2:      i + 1,
				EndOfSeq:    i == 4,
			})
		}
	}
	cfg := &Config{
		MaxEpochs:     100,
		WindowSize:    2,
		GradClip:      10,
		TrajectoryDir: t.TempDir(),
	}
	net := vonet.New(c, 2, 8)
	opt := &SGD{Transformer: &anysgd.Adam{}, Rater: anysgd.ConstRater(0.01)}
	trainer, err := NewTrainer(cfg, net, source, source, opt)
	if err != nil {
		t.Fatal(err)
	}
	trainer.Log = &bytes.Buffer{}

	var first, last float64
	for !trainer.Done() {
		_, _, total, err := trainer.TrainEpoch()
		if err != nil {
			t.Fatal(err)
		}
		mean := stat.Mean(total, nil)
		if trainer.Epoch == 0 {
			first = mean
		}
		last = mean
		trainer.Epoch++
	}
	if !(last < first/2) {
		t.Errorf("loss went from %f to %f", first, last)
	}
	if opt.NumSteps != 100*6 {
		t.Errorf("expected %d steps but got %d", 100*6, opt.NumSteps)
	}

	if _, _, _, err := trainer.Validate(); err != nil {
		t.Fatal(err)
	}
}
