package anyvo

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A LossLog records the numerical per-sample losses of a
// window or a sequence.
//
// The values are plain numbers, detached from any graph, so
// keeping them around never holds on to gradients.
type LossLog struct {
	Rot   []float64
	Trans []float64
	Total []float64
}

// Add records the losses for one sample.
// The total is the sum of rot and trans.
func (l *LossLog) Add(rot, trans float64) {
	l.Rot = append(l.Rot, rot)
	l.Trans = append(l.Trans, trans)
	l.Total = append(l.Total, rot+trans)
}

// Len returns the number of recorded samples.
func (l *LossLog) Len() int {
	return len(l.Total)
}

// Means computes the mean of each loss.
// An empty log has NaN means.
func (l *LossLog) Means() (rot, trans, total float64) {
	return stat.Mean(l.Rot, nil), stat.Mean(l.Trans, nil), stat.Mean(l.Total, nil)
}

// Sums computes the sum of each loss.
func (l *LossLog) Sums() (rot, trans, total float64) {
	return floats.Sum(l.Rot), floats.Sum(l.Trans), floats.Sum(l.Total)
}

// Reset clears the log.
func (l *LossLog) Reset() {
	l.Rot = l.Rot[:0]
	l.Trans = l.Trans[:0]
	l.Total = l.Total[:0]
}

// A Reporter prints loss summaries.
type Reporter struct {
	// Writer to which summaries are printed.
	// If nil, os.Stdout is used.
	Writer io.Writer
}

// Report prints the mean losses of the log.
func (r *Reporter) Report(l *LossLog) {
	rot, trans, total := l.Means()
	r.Println("Rot Loss:", rot, "Trans Loss:", trans)
	r.Println("Total Loss:", total)
}

// Println prints a line of text.
func (r *Reporter) Println(args ...interface{}) {
	if r.Writer == nil {
		fmt.Println(args...)
	} else {
		fmt.Fprintln(r.Writer, args...)
	}
}
