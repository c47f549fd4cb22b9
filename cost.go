package anyvo

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// SquaredError computes the sum of the squared
// differences between the desired and actual vectors.
// The result has a single component.
func SquaredError(desired, actual anydiff.Res) anydiff.Res {
	if desired.Output().Len() != actual.Output().Len() {
		panic(fmt.Sprintf("squared error: length %d does not match %d",
			actual.Output().Len(), desired.Output().Len()))
	}
	return anydiff.Sum(anydiff.Square(anydiff.Sub(actual, desired)))
}

// PoseCost measures the error of a rotation/translation
// prediction.
type PoseCost struct {
	// RotScale multiplies the rotation term, since rotation
	// components are usually much smaller than translation
	// components.
	// If it is 0, a scale of 1 is used.
	RotScale float64
}

// Cost computes the scaled rotation error and the
// translation error for one prediction.
func (p PoseCost) Cost(s *Sample, rot, trans anydiff.Res) (rotCost, transCost anydiff.Res) {
	c := rot.Output().Creator()
	rotCost = SquaredError(anydiff.NewConst(s.Rotation), rot)
	rotCost = anydiff.Scale(rotCost, c.MakeNumeric(p.rotScale()))
	transCost = SquaredError(anydiff.NewConst(s.Translation), trans)
	return
}

func (p PoseCost) rotScale() float64 {
	if p.RotScale == 0 {
		return 1
	}
	return p.RotScale
}

// NormReg is a weight regularizer which penalizes the sum
// of the L2 norms (not squared norms) of the parameters.
type NormReg struct {
	Coeff  float64
	Params []*anydiff.Var
}

// Penalty computes Coeff times the sum of the parameter
// norms.
//
// Parameters with a norm of exactly zero are skipped, since
// the norm has no gradient there.
// If no parameters contribute, a constant zero is returned.
func (n *NormReg) Penalty(c anyvec.Creator) anydiff.Res {
	var sum anydiff.Res
	sum = anydiff.NewConst(c.MakeVector(1))
	for _, p := range n.Params {
		if Float64(anyvec.Norm(p.Vector)) == 0 {
			continue
		}
		norm := anydiff.Pow(anydiff.Sum(anydiff.Square(p)), c.MakeNumeric(0.5))
		sum = anydiff.Add(sum, norm)
	}
	return anydiff.Scale(sum, c.MakeNumeric(n.Coeff))
}

// Float64 converts a float32 or float64 numeric to a
// float64.
// Other numeric types cause a panic.
func Float64(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}

// Float64s converts a float32 or float64 numeric list to a
// []float64.
func Float64s(l anyvec.NumericList) []float64 {
	switch l := l.(type) {
	case []float32:
		res := make([]float64, len(l))
		for i, x := range l {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return append([]float64{}, l...)
	default:
		panic(fmt.Sprintf("unsupported numeric list type: %T", l))
	}
}

// ScalarValue returns the sum of a result's output
// components as a float64.
// For a single-component cost, this is just the cost.
func ScalarValue(r anydiff.Res) float64 {
	return Float64(anyvec.Sum(r.Output()))
}
