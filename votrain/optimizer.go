package votrain

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvo"
)

// DefaultLearningRate is the step size used by an SGD with
// no Rater.
const DefaultLearningRate = 1e-3

// An Optimizer updates parameters from a gradient.
//
// The gradient belongs to the caller, but the Optimizer may
// modify it during Step.
type Optimizer interface {
	Step(g anydiff.Grad)
}

// SGD is an Optimizer that takes stochastic gradient
// descent steps.
type SGD struct {
	// Transformer, if non-nil, is used to transform each
	// gradient before the step, e.g. &anysgd.Adam{}.
	Transformer anysgd.Transformer

	// Rater determines the learning rate for each step.
	// If it is nil, DefaultLearningRate is used.
	Rater anysgd.Rater

	// EpochSize is the number of steps per epoch.
	// It is used to compute the epoch passed to Rater.
	// If it is 0, the epoch is always 0.
	EpochSize int

	// NumSteps counts the steps taken so far.
	NumSteps int
}

// Step transforms the gradient and adds it to the
// variables, scaled by the negative learning rate.
func (s *SGD) Step(g anydiff.Grad) {
	if len(g) == 0 {
		return
	}
	if s.Transformer != nil {
		g = s.Transformer.Transform(g)
	}
	scaleGrad(g, -s.rate())
	g.AddToVars()
	s.NumSteps++
}

func (s *SGD) rate() float64 {
	if s.Rater == nil {
		return DefaultLearningRate
	}
	var epoch float64
	if s.EpochSize != 0 {
		epoch = float64(s.NumSteps) / float64(s.EpochSize)
	}
	return s.Rater.Rate(epoch)
}

// GradNorm computes the L2 norm of the entire gradient.
func GradNorm(g anydiff.Grad) float64 {
	var sum float64
	for _, v := range g {
		sum += anyvo.Float64(v.Dot(v))
	}
	return math.Sqrt(sum)
}

// ClipGrad scales g down so that its norm is at most maxNorm.
// It returns the norm before clipping.
func ClipGrad(g anydiff.Grad, maxNorm float64) float64 {
	norm := GradNorm(g)
	if norm > maxNorm {
		scaleGrad(g, maxNorm/(norm+1e-6))
	}
	return norm
}

func scaleGrad(g anydiff.Grad, s float64) {
	for _, v := range g {
		v.Scale(v.Creator().MakeNumeric(s))
	}
}
