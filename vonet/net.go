// Package vonet implements a recurrent network for visual
// odometry.
//
// A Net encodes each frame pair's features, feeds them
// through an LSTM cell, and regresses the relative rotation
// and translation from the cell's output.
package vonet

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// PoseSize is the number of components in a rotation or
// translation.
const PoseSize = 3

func init() {
	var n Net
	serializer.RegisterTypedDeserializer(n.SerializerType(), DeserializeNet)
}

// A Net is a recurrent pose regressor.
// It implements anyvo.TimePropagator.
//
// A Net is not safe for concurrent use, since every
// Forward call advances its hidden state.
type Net struct {
	InCount int
	Encoder anynet.Net
	Cell    *LSTM
	Rot     *anynet.FC
	Trans   *anynet.FC

	training bool
	state    anyvec.Vector
	history  []*timestep
}

// New creates a randomized Net.
// The encoder maps in features to hidden features, which
// are also the size of the LSTM output.
func New(c anyvec.Creator, in, hidden int) *Net {
	return &Net{
		InCount: in,
		Encoder: anynet.Net{
			anynet.NewFC(c, in, hidden),
			anynet.Tanh,
		},
		Cell:     NewLSTM(c, hidden, hidden),
		Rot:      anynet.NewFC(c, hidden, PoseSize),
		Trans:    anynet.NewFC(c, hidden, PoseSize),
		training: true,
	}
}

// DeserializeNet deserializes a Net.
// The result is in training mode, with a fresh state.
func DeserializeNet(d []byte) (*Net, error) {
	var in serializer.Int
	var enc anynet.Net
	var cell *LSTM
	var rot, trans *anynet.FC
	if err := serializer.DeserializeAny(d, &in, &enc, &cell, &rot, &trans); err != nil {
		return nil, essentials.AddCtx("deserialize Net", err)
	}
	if rot.InCount != cell.StateCount || trans.InCount != cell.StateCount {
		return nil, errors.New("deserialize Net: head size does not match cell")
	}
	return &Net{
		InCount:  int(in),
		Encoder:  enc,
		Cell:     cell,
		Rot:      rot,
		Trans:    trans,
		training: true,
	}, nil
}

// Forward runs the network on the next input.
func (n *Net) Forward(in anyvec.Vector) (rot, trans anydiff.Res, err error) {
	if in.Len() != n.InCount {
		return nil, nil, fmt.Errorf("forward: input length should be %d, but got %d",
			n.InCount, in.Len())
	}
	features := n.Encoder.Apply(anydiff.NewConst(in), 1)

	if n.state == nil {
		n.state = n.Cell.Start(in.Creator())
	}
	lastState := anydiff.NewVar(n.state)
	newState := n.Cell.Step(features, lastState)
	n.state = newState.Output()

	out := &stateRes{Vec: newState.Output(), V: anydiff.VarSet{}}
	if n.training {
		out.V = anydiff.MergeVarSets(newState.Vars())
		out.V.Del(lastState)
		n.history = append(n.history, &timestep{
			In:  lastState,
			Res: newState,
			Out: out,
		})
	}

	hidden := anydiff.Slice(out, 0, n.Cell.StateCount)
	return n.Rot.Apply(hidden, 1), n.Trans.Apply(hidden, 1), nil
}

// PropagateTime back-propagates the gradients accumulated
// on the hidden states through every recorded timestep.
func (n *Net) PropagateTime(g anydiff.Grad) {
	var carry anyvec.Vector
	for i := len(n.history) - 1; i >= 0; i-- {
		step := n.history[i]
		upstream := step.Out.Upstream
		if upstream == nil {
			upstream = carry
		} else if carry != nil {
			upstream.Add(carry)
		}
		if upstream == nil {
			carry = nil
			continue
		}
		down := upstream.Creator().MakeVector(step.In.Vector.Len())
		g[step.In] = down
		step.Res.Propagate(upstream, g)
		delete(g, step.In)
		carry = down
	}
	n.history = nil
}

// DetachState keeps the current hidden state but forgets
// how it was computed.
func (n *Net) DetachState() {
	n.history = nil
}

// ResetState returns the hidden state to the start state.
func (n *Net) ResetState() {
	n.history = nil
	n.state = nil
}

// Train enables training mode, in which timesteps are
// recorded for PropagateTime.
func (n *Net) Train() {
	n.training = true
}

// Eval enables evaluation mode, in which no timesteps are
// recorded and outputs carry no gradients.
func (n *Net) Eval() {
	n.training = false
	n.history = nil
}

// Parameters returns the parameters of the encoder, the
// cell, and the heads, in that order.
func (n *Net) Parameters() []*anydiff.Var {
	res := n.Encoder.Parameters()
	res = append(res, n.Cell.Parameters()...)
	res = append(res, n.Rot.Parameters()...)
	return append(res, n.Trans.Parameters()...)
}

// SerializerType returns the unique ID used to serialize
// a Net with the serializer package.
func (n *Net) SerializerType() string {
	return "github.com/unixpickle/anyvo/vonet.Net"
}

// Serialize serializes the Net.
// The hidden state is not included.
func (n *Net) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Int(n.InCount), n.Encoder, n.Cell,
		n.Rot, n.Trans)
}

type timestep struct {
	In  *anydiff.Var
	Res anydiff.Res
	Out *stateRes
}

// stateRes holds the state of one timestep.
// Gradients propagated into it are accumulated rather than
// passed on, so that PropagateTime can pass them on once.
type stateRes struct {
	Vec      anyvec.Vector
	V        anydiff.VarSet
	Upstream anyvec.Vector
}

func (s *stateRes) Output() anyvec.Vector {
	return s.Vec
}

func (s *stateRes) Vars() anydiff.VarSet {
	return s.V
}

func (s *stateRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	if s.Upstream == nil {
		s.Upstream = u.Copy()
	} else {
		s.Upstream.Add(u)
	}
}
