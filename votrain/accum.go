package votrain

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvo"
)

// A LossAccumulator adds up the differentiable losses of a
// window so they can be back-propagated at once.
//
// The zero value is an empty accumulator.
type LossAccumulator struct {
	rot   anydiff.Res
	trans anydiff.Res
	total anydiff.Res
	reg   anydiff.Res
	count int
}

// Add adds the losses for one sample.
func (l *LossAccumulator) Add(rot, trans anydiff.Res) {
	l.rot = addRes(l.rot, rot)
	l.trans = addRes(l.trans, trans)
	l.total = addRes(l.total, anydiff.Add(rot, trans))
	l.count++
}

// AddRegularizer adds a regularization term to the total.
// It does not count as a sample.
func (l *LossAccumulator) AddRegularizer(r anydiff.Res) {
	l.reg = addRes(l.reg, r)
	l.total = addRes(l.total, r)
}

// Len returns the number of samples added since the last
// reset.
func (l *LossAccumulator) Len() int {
	return l.count
}

// Total returns the combined loss, or nil if nothing has
// been added.
func (l *LossAccumulator) Total() anydiff.Res {
	return l.total
}

// Values returns the numerical values of the accumulated
// losses.
// The total includes any regularization terms.
func (l *LossAccumulator) Values() (rot, trans, reg, total float64) {
	return resValue(l.rot), resValue(l.trans), resValue(l.reg), resValue(l.total)
}

// Backward propagates the total loss into g.
// It does nothing if the accumulator is empty.
func (l *LossAccumulator) Backward(g anydiff.Grad) {
	if l.total == nil {
		return
	}
	c := l.total.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	l.total.Propagate(upstream, g)
}

// Reset empties the accumulator.
func (l *LossAccumulator) Reset() {
	*l = LossAccumulator{}
}

func addRes(sum, r anydiff.Res) anydiff.Res {
	if sum == nil {
		return r
	}
	return anydiff.Add(sum, r)
}

func resValue(r anydiff.Res) float64 {
	if r == nil {
		return 0
	}
	return anyvo.ScalarValue(r)
}
