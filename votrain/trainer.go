// Package votrain implements training and validation
// epochs for recurrent visual odometry models.
//
// Training uses truncated back-propagation through time:
// losses are summed over a window of consecutive samples,
// and the window is back-propagated and stepped once it
// reaches Config.WindowSize samples or its sequence ends.
package votrain

import (
	"errors"
	"fmt"
	"io"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvo"
	"github.com/unixpickle/essentials"
)

// WindowStatus describes a window (in training) or a
// sequence (in validation) that just closed.
type WindowStatus struct {
	Epoch      int
	Validation bool

	// Start is the index of the window's first sample, and
	// Samples is the number of samples in the window.
	Start   int
	Samples int

	SeqID    int
	EndOfSeq bool

	// Accumulated losses of the window.
	// Total includes Reg.
	Rot   float64
	Trans float64
	Reg   float64
	Total float64

	// GradNorm is the gradient norm before clipping.
	// It is 0 in validation.
	GradNorm float64
}

// A Trainer runs training and validation epochs.
type Trainer struct {
	Config    *Config
	Model     anyvo.Model
	TrainSet  anyvo.SampleSource
	ValSet    anyvo.SampleSource
	Optimizer Optimizer

	// Epoch is the current epoch number.
	// It is maintained by the caller and used to check
	// Config.MaxEpochs and to name trajectory files.
	Epoch int

	// Iters counts the training epochs that did work.
	Iters int

	// Log is the sink for loss reports.
	// If nil, os.Stdout is used.
	Log io.Writer

	// Trajectories, if non-nil, receives validation
	// trajectories.
	// If nil, they are written to Config.TrajectoryDir.
	Trajectories TrajectoryWriter

	// StatusFunc, if non-nil, is called every time a window
	// or validation sequence closes.
	StatusFunc func(s *WindowStatus)

	accum LossAccumulator
}

// NewTrainer creates a Trainer after validating its
// configuration.
// The validation set may be nil if Validate is never used.
func NewTrainer(cfg *Config, model anyvo.Model, train, val anyvo.SampleSource,
	opt Optimizer) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil || train == nil || opt == nil {
		return nil, errors.New("new trainer: model, training set, and optimizer are required")
	}
	return &Trainer{
		Config:    cfg,
		Model:     model,
		TrainSet:  train,
		ValSet:    val,
		Optimizer: opt,
	}, nil
}

// Done returns true once Epoch has reached
// Config.MaxEpochs.
func (t *Trainer) Done() bool {
	return t.Epoch >= t.Config.MaxEpochs
}

// TrainEpoch runs one pass over the training set.
//
// It returns the rotation, translation, and total loss of
// every sample, in order.
// If the maximum number of epochs has elapsed, it does
// nothing and returns nil slices.
func (t *Trainer) TrainEpoch() (rot, trans, total []float64, err error) {
	rep := &anyvo.Reporter{Writer: t.Log}
	if t.Done() {
		rep.Println("Max epochs elapsed! Returning ...")
		return nil, nil, nil, nil
	}

	t.Model.Train()
	t.Iters++

	cost := anyvo.PoseCost{RotScale: t.Config.RotScale}
	numIters := t.numIters(t.TrainSet)
	var windowLog anyvo.LossLog
	var elapsed, start int
	t.accum.Reset()
	t.Model.DetachState()

	for i := 0; i < numIters; i++ {
		sample, rotLoss, transLoss, err := t.forward(t.TrainSet, i, cost, nil)
		if err != nil {
			return nil, nil, nil, essentials.AddCtx("train epoch",
				essentials.AddCtx(fmt.Sprintf("sample %d", i), err))
		}
		t.accum.Add(rotLoss, transLoss)

		r, tr := anyvo.ScalarValue(rotLoss), anyvo.ScalarValue(transLoss)
		rot = append(rot, r)
		trans = append(trans, tr)
		total = append(total, r+tr)
		windowLog.Add(r, tr)

		endOfSeq := sample.EndOfSeq || (t.Config.Debug && i == numIters-1)
		elapsed++
		if elapsed >= t.Config.WindowSize || endOfSeq {
			status := &WindowStatus{
				Epoch:    t.Epoch,
				Start:    start,
				Samples:  elapsed,
				SeqID:    sample.SeqID,
				EndOfSeq: endOfSeq,
			}
			rep.Report(&windowLog)
			windowLog.Reset()
			t.closeWindow(status)
			elapsed = 0
			start = i + 1
		}
	}

	return rot, trans, total, nil
}

func (t *Trainer) closeWindow(status *WindowStatus) {
	if t.Config.WeightReg != 0 {
		reg := &anyvo.NormReg{Coeff: t.Config.WeightReg, Params: t.Model.Parameters()}
		t.accum.AddRegularizer(reg.Penalty(t.accum.Total().Output().Creator()))
	}
	status.Rot, status.Trans, status.Reg, status.Total = t.accum.Values()

	grad := anydiff.NewGrad(t.Model.Parameters()...)
	t.accum.Backward(grad)
	if tp, ok := t.Model.(anyvo.TimePropagator); ok {
		tp.PropagateTime(grad)
	}
	if t.Config.GradClip != 0 {
		status.GradNorm = ClipGrad(grad, t.Config.GradClip)
	} else {
		status.GradNorm = GradNorm(grad)
	}
	t.Optimizer.Step(grad)

	t.Model.DetachState()
	t.accum.Reset()
	if status.EndOfSeq {
		t.Model.ResetState()
	}

	if t.StatusFunc != nil {
		t.StatusFunc(status)
	}
}

// forward fetches a sample, runs the model on it, and
// computes its losses.
// If traj is non-nil, the prediction is added to it.
func (t *Trainer) forward(src anyvo.SampleSource, idx int, cost anyvo.PoseCost,
	traj *Trajectory) (sample *anyvo.Sample, rotLoss, transLoss anydiff.Res, err error) {
	sample, err = src.GetSample(idx)
	if err != nil {
		return
	}
	rotPred, transPred, err := t.Model.Forward(sample.Input)
	if err != nil {
		return
	}
	if rotPred.Output().Len() != sample.Rotation.Len() ||
		transPred.Output().Len() != sample.Translation.Len() {
		err = fmt.Errorf("prediction sizes %d/%d do not match ground truth sizes %d/%d",
			rotPred.Output().Len(), transPred.Output().Len(), sample.Rotation.Len(),
			sample.Translation.Len())
		return
	}
	if traj != nil {
		traj.Add(sample, rotPred.Output(), transPred.Output())
	}
	rotLoss, transLoss = cost.Cost(sample, rotPred, transPred)
	return
}

func (t *Trainer) numIters(src anyvo.SampleSource) int {
	if t.Config.Debug && t.Config.DebugIters < src.Len() {
		return t.Config.DebugIters
	}
	return src.Len()
}
