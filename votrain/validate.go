package votrain

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anyvo"
	"github.com/unixpickle/essentials"
)

// Validate runs one pass over the validation set without
// updating the model.
//
// Every time a sequence ends, its predicted trajectory is
// written out and its mean losses are reported.
// Samples after the last end of sequence (e.g. in debug
// mode) are not written.
//
// It returns the rotation, translation, and total loss of
// every sample, in order.
func (t *Trainer) Validate() (rot, trans, total []float64, err error) {
	if t.ValSet == nil {
		return nil, nil, nil, errors.New("validate: no validation set")
	}
	rep := &anyvo.Reporter{Writer: t.Log}
	t.Model.Eval()

	cost := anyvo.PoseCost{RotScale: t.Config.RotScale}
	numIters := t.numIters(t.ValSet)
	traj := &Trajectory{}
	var seqLog anyvo.LossLog
	var start int
	t.accum.Reset()

	for i := 0; i < numIters; i++ {
		sample, rotLoss, transLoss, err := t.forward(t.ValSet, i, cost, traj)
		if err != nil {
			return nil, nil, nil, essentials.AddCtx("validate",
				essentials.AddCtx(fmt.Sprintf("sample %d", i), err))
		}
		t.accum.Add(rotLoss, transLoss)

		r, tr := anyvo.ScalarValue(rotLoss), anyvo.ScalarValue(transLoss)
		rot = append(rot, r)
		trans = append(trans, tr)
		total = append(total, r+tr)
		seqLog.Add(r, tr)

		if !sample.EndOfSeq {
			continue
		}

		rep.Report(&seqLog)
		seqLog.Reset()

		if err := t.trajectoryWriter().WriteTrajectory(sample.SeqID, t.Epoch, traj); err != nil {
			return nil, nil, nil, essentials.AddCtx("validate", err)
		}
		traj.Reset()

		t.Model.DetachState()

		status := &WindowStatus{
			Epoch:      t.Epoch,
			Validation: true,
			Start:      start,
			Samples:    t.accum.Len(),
			SeqID:      sample.SeqID,
			EndOfSeq:   true,
		}
		status.Rot, status.Trans, status.Reg, status.Total = t.accum.Values()
		t.accum.Reset()
		start = i + 1
		if t.StatusFunc != nil {
			t.StatusFunc(status)
		}
	}

	return rot, trans, total, nil
}

func (t *Trainer) trajectoryWriter() TrajectoryWriter {
	if t.Trajectories != nil {
		return t.Trajectories
	}
	return &FileTrajectoryWriter{Dir: t.Config.TrajectoryDir}
}
