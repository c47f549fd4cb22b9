package anyvo

import (
	"fmt"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Sample is one frame pair from a sequence, along with the
// ground-truth motion between the frames.
type Sample struct {
	Input       anyvec.Vector
	Rotation    anyvec.Vector
	Translation anyvec.Vector

	SeqID  int
	Frame1 int
	Frame2 int

	// EndOfSeq is set on the last frame pair of a continuous
	// motion sequence.
	EndOfSeq bool
}

// A SampleSource is an ordered list of samples.
//
// Samples from the same sequence must be contiguous and in
// temporal order, with the last one marked EndOfSeq.
type SampleSource interface {
	Len() int
	GetSample(idx int) (*Sample, error)
}

// A SliceSource is a concrete SampleSource with
// predetermined samples.
type SliceSource []*Sample

// Len returns the number of samples.
func (s SliceSource) Len() int {
	return len(s)
}

// GetSample returns the sample at the index.
func (s SliceSource) GetSample(idx int) (*Sample, error) {
	if idx < 0 || idx >= len(s) {
		return nil, fmt.Errorf("get sample: index %d out of range [0, %d)", idx, len(s))
	}
	return s[idx], nil
}

// A ChunkedSource wraps a SampleSource and splits each of
// its sequences into sub-sequences of at most SeqLen samples.
//
// The last sample of every sub-sequence is marked EndOfSeq.
// All other fields are passed through untouched.
//
// A curriculum can grow SeqLen between epochs via SetSeqLen
// to present the network with longer and longer sequences.
type ChunkedSource struct {
	Source SampleSource

	// SeqLen is the maximum sub-sequence length.
	// If it is 0, the source sequences are not split.
	SeqLen int

	// offsets[i] is the index of sample i within its source
	// sequence.
	offsets []int
}

// NewChunkedSource creates a ChunkedSource by scanning the
// source for sequence boundaries.
func NewChunkedSource(s SampleSource, seqLen int) (*ChunkedSource, error) {
	res := &ChunkedSource{Source: s, offsets: make([]int, s.Len())}
	var offset int
	for i := 0; i < s.Len(); i++ {
		sample, err := s.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("new chunked source", err)
		}
		res.offsets[i] = offset
		offset++
		if sample.EndOfSeq {
			offset = 0
		}
	}
	res.SetSeqLen(seqLen)
	return res, nil
}

// SetSeqLen updates the sub-sequence length.
func (c *ChunkedSource) SetSeqLen(n int) {
	if n < 0 {
		n = 0
	}
	c.SeqLen = n
}

// Len returns the number of samples in the source.
func (c *ChunkedSource) Len() int {
	return c.Source.Len()
}

// GetSample returns a copy of the source sample whose
// EndOfSeq flag also marks sub-sequence boundaries.
func (c *ChunkedSource) GetSample(idx int) (*Sample, error) {
	sample, err := c.Source.GetSample(idx)
	if err != nil {
		return nil, err
	}
	if c.SeqLen == 0 || sample.EndOfSeq {
		return sample, nil
	}
	res := *sample
	res.EndOfSeq = (c.offsets[idx]+1)%c.SeqLen == 0
	return &res, nil
}
