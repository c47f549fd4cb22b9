// Package anyvo provides the building blocks for training
// recurrent visual odometry networks.
// A network sees one frame pair at a time and regresses the
// relative rotation and translation between the frames.
//
// Sub-packages implement the training loop (votrain), a
// curriculum over sequence lengths (curriculum), and a
// concrete recurrent network (vonet).
package anyvo

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// A Model is a recurrent pose regressor.
//
// A Model carries hidden state from one Forward call to the
// next.
// The state is only ever manipulated through DetachState and
// ResetState, so callers never need to reach into it.
type Model interface {
	anynet.Parameterizer

	// Forward feeds one frame pair through the model and
	// produces the predicted rotation and translation.
	//
	// The results depend on every input since the last
	// DetachState or ResetState, so propagating through them
	// back-propagates through time.
	Forward(in anyvec.Vector) (rot, trans anydiff.Res, err error)

	// DetachState severs the gradient history of the hidden
	// state while keeping its numerical value.
	DetachState()

	// ResetState clears the hidden state entirely, so the
	// next Forward starts a new sequence.
	ResetState()

	// Train puts the model in training mode.
	Train()

	// Eval puts the model in evaluation mode.
	// In evaluation mode, no gradients will be requested, so
	// a model need not keep a graph of previous timesteps.
	Eval()
}

// A SeqLenSetter is anything whose sequence length can be
// adjusted between epochs, such as a ChunkedSource driven by
// a curriculum.
type SeqLenSetter interface {
	SetSeqLen(n int)
}

// A TimePropagator is a Model which defers
// back-propagation through time.
//
// After the costs computed from a run of Forward outputs
// have been propagated, PropagateTime carries the gradients
// backwards through the hidden state, adding the parameter
// partials to g.
// It only covers timesteps since the last DetachState,
// ResetState, or PropagateTime.
type TimePropagator interface {
	Model
	PropagateTime(g anydiff.Grad)
}
