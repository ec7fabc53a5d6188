// Package salt partitions the salt search space into disjoint batches.
//
// A full salt is owner (20 bytes) ‖ segment (4 bytes) ‖ counter (8 bytes).
// The owner half binds salts to the caller address the factory expects; the
// segment is drawn randomly once per allocator so independent runs search
// different regions; the counter advances monotonically, one batch at a
// time, so batches issued by one allocator never overlap.
package salt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"

	"github.com/Philogy/create3crunch/pkg/types"
)

// ErrExhausted is returned by Next once the counter range is used up and
// the allocator was configured to exhaust rather than wrap.
var ErrExhausted = errors.New("salt: counter range exhausted")

// Config parameterizes an Allocator.
type Config struct {
	// Owner is the caller address occupying the salt's first 20 bytes.
	Owner [20]byte
	// Lanes is the batch size: the number of consecutive salts per batch.
	Lanes uint64
	// Limit bounds the counter range to [0, Limit). Zero means the full
	// 64-bit range. Mainly useful for exercising the wrap policy.
	Limit uint64
	// ExhaustOnWrap makes Next return ErrExhausted when the range runs out
	// instead of reseeding the segment and wrapping. The default is to wrap
	// indefinitely: the 2^256 salt space is not practically exhaustible and
	// the tool runs until a match or interruption.
	ExhaustOnWrap bool
}

// Allocator hands out disjoint SaltBatches. Not safe for concurrent use;
// the dispatch loop is the only caller.
type Allocator struct {
	cfg     Config
	segment [4]byte
	next    uint64
	limit   uint64
	wraps   uint64
}

// New creates an allocator with a freshly randomized segment.
func New(cfg Config) (*Allocator, error) {
	if cfg.Lanes == 0 {
		return nil, errors.New("salt: batch size must be positive")
	}
	limit := cfg.Limit
	if limit == 0 {
		limit = math.MaxUint64
	}
	if cfg.Lanes > limit {
		return nil, fmt.Errorf("salt: batch size %d exceeds counter range %d", cfg.Lanes, limit)
	}
	a := &Allocator{cfg: cfg, limit: limit}
	if err := a.reseed(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Allocator) reseed() error {
	if _, err := rand.Read(a.segment[:]); err != nil {
		return fmt.Errorf("salt: reading segment entropy: %w", err)
	}
	a.next = 0
	return nil
}

// Next returns the next batch. Batches from one allocator are disjoint
// until the counter range runs out; at that point the allocator either
// reseeds and wraps or reports exhaustion, per Config.ExhaustOnWrap.
func (a *Allocator) Next() (types.SaltBatch, error) {
	if a.limit-a.next < a.cfg.Lanes {
		if a.cfg.ExhaustOnWrap {
			return types.SaltBatch{}, ErrExhausted
		}
		if err := a.reseed(); err != nil {
			return types.SaltBatch{}, err
		}
		a.wraps++
	}
	batch := types.SaltBatch{
		Segment: a.segment,
		Base:    a.next,
		Lanes:   a.cfg.Lanes,
	}
	a.next += a.cfg.Lanes
	return batch, nil
}

// Segment returns the current random segment, for progress display.
func (a *Allocator) Segment() [4]byte { return a.segment }

// Wraps returns how many times the counter range has wrapped.
func (a *Allocator) Wraps() uint64 { return a.wraps }

// Owner returns the owner address bound into every salt.
func (a *Allocator) Owner() [20]byte { return a.cfg.Owner }
