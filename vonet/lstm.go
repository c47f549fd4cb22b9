package vonet

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const lstmRememberBias = 1

func init() {
	var l LSTM
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLSTM)
}

// LSTM is a long short-term memory cell operating on one
// timestep at a time.
//
// The state of the cell is a single vector: the output
// followed by the memory cell, each StateCount long.
type LSTM struct {
	InCount    int
	StateCount int

	// Gates maps the input concatenated with the previous
	// output to the four gate pre-activations: input value,
	// input gate, remember gate, and output gate.
	Gates *anynet.FC
}

// DeserializeLSTM deserializes an LSTM.
func DeserializeLSTM(d []byte) (*LSTM, error) {
	var in, state serializer.Int
	var gates *anynet.FC
	if err := serializer.DeserializeAny(d, &in, &state, &gates); err != nil {
		return nil, essentials.AddCtx("deserialize LSTM", err)
	}
	if gates.InCount != int(in+state) || gates.OutCount != int(state)*4 {
		return nil, errors.New("deserialize LSTM: invalid gate dimensions")
	}
	return &LSTM{InCount: int(in), StateCount: int(state), Gates: gates}, nil
}

// NewLSTM creates a new, randomized LSTM.
//
// The remember gates are initially biased to remember
// things.
func NewLSTM(c anyvec.Creator, in, state int) *LSTM {
	res := &LSTM{
		InCount:    in,
		StateCount: state,
		Gates:      anynet.NewFC(c, in+state, state*4),
	}
	remember := c.MakeVector(state)
	remember.AddScalar(c.MakeNumeric(lstmRememberBias))
	res.Gates.Biases.Vector.Add(c.Concat(
		c.MakeVector(state*2),
		remember,
		c.MakeVector(state),
	))
	return res
}

// Start produces a zero start state.
func (l *LSTM) Start(c anyvec.Creator) anyvec.Vector {
	return c.MakeVector(l.StateCount * 2)
}

// Step applies the cell to one input.
// It returns the new state.
func (l *LSTM) Step(in, state anydiff.Res) anydiff.Res {
	n := l.StateCount
	return anydiff.Pool(state, func(state anydiff.Res) anydiff.Res {
		lastOut := anydiff.Slice(state, 0, n)
		lastCell := anydiff.Slice(state, n, n*2)
		gates := l.Gates.Apply(anydiff.Concat(in, lastOut), 1)
		return anydiff.Pool(gates, func(gates anydiff.Res) anydiff.Res {
			inVal := anydiff.Tanh(anydiff.Slice(gates, 0, n))
			inGate := anydiff.Sigmoid(anydiff.Slice(gates, n, n*2))
			remember := anydiff.Sigmoid(anydiff.Slice(gates, n*2, n*3))
			outGate := anydiff.Sigmoid(anydiff.Slice(gates, n*3, n*4))
			cell := anydiff.Add(
				anydiff.Mul(remember, lastCell),
				anydiff.Mul(inGate, inVal),
			)
			return anydiff.Pool(cell, func(cell anydiff.Res) anydiff.Res {
				out := anydiff.Mul(outGate, anydiff.Tanh(cell))
				return anydiff.Concat(out, cell)
			})
		})
	})
}

// Parameters returns the parameters of the cell.
func (l *LSTM) Parameters() []*anydiff.Var {
	return l.Gates.Parameters()
}

// SerializerType returns the unique ID used to serialize
// an LSTM with the serializer package.
func (l *LSTM) SerializerType() string {
	return "github.com/unixpickle/anyvo/vonet.LSTM"
}

// Serialize serializes the LSTM.
func (l *LSTM) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(l.InCount),
		serializer.Int(l.StateCount),
		l.Gates,
	)
}
