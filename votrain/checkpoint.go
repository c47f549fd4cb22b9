package votrain

import (
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// SaveCheckpoint saves everything needed to resume
// training after the given epoch.
//
// If the optimizer's Transformer implements
// anysgd.TransformMarshaler, its state is saved as well.
func SaveCheckpoint(path string, model serializer.Serializer, opt *SGD, epoch int) error {
	var optState []byte
	if m, ok := opt.Transformer.(anysgd.TransformMarshaler); ok {
		var err error
		optState, err = m.MarshalBinary()
		if err != nil {
			return essentials.AddCtx("save checkpoint", err)
		}
	}
	err := serializer.SaveAny(path, model, serializer.Int(epoch),
		serializer.Int(opt.NumSteps), serializer.Bytes(optState))
	if err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	return nil
}

// LoadCheckpoint loads a checkpoint saved by
// SaveCheckpoint.
//
// The model is decoded into modelPtr, which should be a
// pointer to the saved model's type (e.g. a **vonet.Net).
// The optimizer's step count and transformer state are
// restored in place.
func LoadCheckpoint(path string, modelPtr interface{}, opt *SGD) (epoch int, err error) {
	var savedEpoch, numSteps serializer.Int
	var optState serializer.Bytes
	if err := serializer.LoadAny(path, modelPtr, &savedEpoch, &numSteps, &optState); err != nil {
		return 0, essentials.AddCtx("load checkpoint", err)
	}
	opt.NumSteps = int(numSteps)
	if m, ok := opt.Transformer.(anysgd.TransformMarshaler); ok && len(optState) > 0 {
		if err := m.UnmarshalBinary(optState); err != nil {
			return 0, essentials.AddCtx("load checkpoint", err)
		}
	}
	return int(savedEpoch), nil
}
