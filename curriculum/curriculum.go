// Package curriculum grows the length of training
// sequences as a network's loss improves.
package curriculum

import (
	"errors"
	"math"
	"math/rand"

	"github.com/unixpickle/anyvo"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// Defaults used by Default.
const (
	// DefaultGoodLoss is the loss at or below which the
	// length grows.
	DefaultGoodLoss = 9e-3

	// DefaultMinLen is the starting sequence length.
	DefaultMinLen = 5

	// DefaultMaxLen bounds the sequence length.
	DefaultMaxLen = 1095
)

// A Curriculum tracks the sequence length to present to a
// network.
//
// The length never shrinks.
// Every time the observed loss is at most GoodLoss, the
// length grows by less than 50%, bounded by MaxLen.
type Curriculum struct {
	GoodLoss float64
	MinLen   int
	MaxLen   int

	// Len is the current sequence length.
	Len int

	// LastLoss is the loss passed to the most recent Step.
	// It is +Inf before the first step.
	LastLoss float64

	// Target, if non-nil, is updated with Len after every
	// step.
	Target anyvo.SeqLenSetter

	// Rand, if non-nil, is used to choose growth amounts.
	// Otherwise, the global source is used.
	Rand *rand.Rand
}

// New creates a Curriculum starting at minLen.
func New(goodLoss float64, minLen, maxLen int) (*Curriculum, error) {
	if minLen < 1 {
		return nil, errors.New("new curriculum: minimum length must be positive")
	}
	if maxLen < minLen {
		return nil, errors.New("new curriculum: maximum length is less than minimum length")
	}
	return &Curriculum{
		GoodLoss: goodLoss,
		MinLen:   minLen,
		MaxLen:   maxLen,
		Len:      minLen,
		LastLoss: math.Inf(1),
	}, nil
}

// Default creates a Curriculum with the default loss
// threshold and length bounds.
func Default() *Curriculum {
	c, err := New(DefaultGoodLoss, DefaultMinLen, DefaultMaxLen)
	if err != nil {
		panic(err)
	}
	return c
}

// Step examines the latest loss and grows the sequence
// length if the loss is good enough.
//
// When it grows, the new length is drawn uniformly from
// [Len, ceil(1.5*Len)) and clamped to MaxLen.
// Lengths too small for that range to hold more than Len
// stay put.
func (c *Curriculum) Step(loss float64) {
	c.LastLoss = loss
	if loss <= c.GoodLoss {
		upper := int(math.Ceil(float64(c.Len) * 1.5))
		if upper > c.Len {
			c.Len += c.intn(upper - c.Len)
		}
		if c.Len > c.MaxLen {
			c.Len = c.MaxLen
		}
	}
	if c.Target != nil {
		c.Target.SetSeqLen(c.Len)
	}
}

// Save writes the current length to a file, so that a
// resumed run can continue from it with Load.
func (c *Curriculum) Save(path string) error {
	if err := serializer.SaveAny(path, serializer.Int(c.Len)); err != nil {
		return essentials.AddCtx("save curriculum", err)
	}
	return nil
}

// Load restores a length written by Save.
// The length is clamped to [MinLen, MaxLen] and passed on
// to Target, if there is one.
func (c *Curriculum) Load(path string) error {
	var length serializer.Int
	if err := serializer.LoadAny(path, &length); err != nil {
		return essentials.AddCtx("load curriculum", err)
	}
	c.Len = int(length)
	if c.Len < c.MinLen {
		c.Len = c.MinLen
	} else if c.Len > c.MaxLen {
		c.Len = c.MaxLen
	}
	if c.Target != nil {
		c.Target.SetSeqLen(c.Len)
	}
	return nil
}

func (c *Curriculum) intn(n int) int {
	if c.Rand != nil {
		return c.Rand.Intn(n)
	}
	return rand.Intn(n)
}
