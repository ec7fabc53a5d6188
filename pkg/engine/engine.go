// Package engine evaluates salt batches: the two-stage address derivation
// kernel plus in-lane pattern matching.
//
// Per lane the expensive CREATE2 proxy hash is computed once and then
// amortized across maxNonce+1 cheap CREATE nonce hashes, so raising the
// nonce ceiling approaches single-hash throughput per candidate address.
package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"hash"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Philogy/create3crunch/internal/crypto"
	"github.com/Philogy/create3crunch/pkg/pattern"
	"github.com/Philogy/create3crunch/pkg/types"
)

// DefaultMatchCapacity is the number of match slots reserved per batch.
// More matches than this in one batch are counted but dropped; the next
// batch starts with a clean buffer.
const DefaultMatchCapacity = 16

// Device is the compute-resource contract the dispatch loop programs
// against: submit a batch, block until it has been fully evaluated, read
// back the matches.
type Device interface {
	Dispatch(ctx context.Context, batch types.SaltBatch) (types.BatchResult, error)
	Close() error
}

// Config parameterizes the derivation kernel. Immutable for a run.
type Config struct {
	Factory      [20]byte
	Owner        [20]byte
	InitCodeHash [32]byte
	// MaxNonce is the highest proxy nonce probed per salt, inclusive.
	MaxNonce uint64
	// Patterns may be nil when only the zero-byte threshold is in use.
	Patterns *pattern.Set
	// MinZeroBytes accepts any address with at least this many zero bytes,
	// independently of the patterns. Negative disables it.
	MinZeroBytes int
	// Workers is the number of parallel lane workers; 0 means NumCPU.
	Workers int
	// MatchCapacity is the per-batch match buffer size; 0 means the default.
	MatchCapacity int
}

// CPUEngine runs the kernel on a pool of goroutine lanes. It implements
// Device.
type CPUEngine struct {
	cfg      Config
	workers  int
	matchCap int
}

// New creates a CPU engine for the given configuration.
func New(cfg Config) (*CPUEngine, error) {
	if cfg.Patterns == nil && cfg.MinZeroBytes < 0 {
		return nil, errors.New("engine: no acceptance criterion configured")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	matchCap := cfg.MatchCapacity
	if matchCap <= 0 {
		matchCap = DefaultMatchCapacity
	}
	return &CPUEngine{cfg: cfg, workers: workers, matchCap: matchCap}, nil
}

// Dispatch evaluates every lane of the batch and returns the matches found.
// Cancellation is honored at batch granularity only: a batch that has
// started runs to completion.
func (e *CPUEngine) Dispatch(ctx context.Context, batch types.SaltBatch) (types.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return types.BatchResult{}, err
	}
	if batch.Lanes == 0 {
		return types.BatchResult{}, nil
	}

	results := make([]types.MatchResult, e.matchCap)
	var claimed int64

	workers := e.workers
	if uint64(workers) > batch.Lanes {
		workers = int(batch.Lanes)
	}
	per := (batch.Lanes + uint64(workers) - 1) / uint64(workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := uint64(w) * per
		hi := lo + per
		if hi > batch.Lanes {
			hi = batch.Lanes
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi uint64) {
			defer wg.Done()
			l := e.newLane(batch)
			for i := lo; i < hi; i++ {
				l.evaluate(batch.Base+i, results, &claimed)
			}
		}(lo, hi)
	}
	wg.Wait()

	n := atomic.LoadInt64(&claimed)
	var truncated uint64
	if n > int64(e.matchCap) {
		truncated = uint64(n) - uint64(e.matchCap)
		n = int64(e.matchCap)
	}
	return types.BatchResult{Matches: results[:n], Truncated: truncated}, nil
}

// Close releases engine resources. The CPU engine holds none.
func (e *CPUEngine) Close() error { return nil }

// lane is the per-worker scratch state: one keccak hasher and the reused
// preimage buffers. The 85-byte CREATE2 input is primed once per batch;
// only the 8 counter bytes change between salts.
type lane struct {
	cfg      *Config
	hasher   hash.Hash
	matcher  *pattern.Matcher
	inputBuf [crypto.Create2InputLen]byte
	rlpBuf   [crypto.CreateInputMax]byte
	hashBuf  [crypto.HashLen]byte
	proxy    [crypto.AddressLen]byte
	addr     [crypto.AddressLen]byte
}

const (
	saltOff    = crypto.Create2PrefixLen // 21: start of the salt region
	segmentOff = saltOff + 20            // 41: random segment
	counterOff = segmentOff + 4          // 45: big-endian counter
	saltEnd    = saltOff + crypto.Create2SaltLen
)

func (e *CPUEngine) newLane(batch types.SaltBatch) *lane {
	l := &lane{cfg: &e.cfg, hasher: crypto.NewKeccak()}
	crypto.PrimeCreate2Input(l.inputBuf[:], e.cfg.Factory, e.cfg.InitCodeHash)
	copy(l.inputBuf[saltOff:segmentOff], e.cfg.Owner[:])
	copy(l.inputBuf[segmentOff:counterOff], batch.Segment[:])
	if e.cfg.Patterns != nil {
		l.matcher = e.cfg.Patterns.NewMatcher()
	}
	return l
}

// evaluate derives all candidate addresses for one salt counter value and
// claims result slots for any that match. Slots are claimed with an atomic
// increment so lanes never overwrite each other; claims beyond the buffer
// capacity only bump the counter and are reported as truncated.
func (l *lane) evaluate(counter uint64, results []types.MatchResult, claimed *int64) {
	binary.BigEndian.PutUint64(l.inputBuf[counterOff:saltEnd], counter)
	crypto.Create2AddressInto(l.hasher, l.inputBuf[:], l.hashBuf[:], l.proxy[:])

	for nonce := uint64(0); nonce <= l.cfg.MaxNonce; nonce++ {
		crypto.CreateAddressInto(l.hasher, l.rlpBuf[:], l.hashBuf[:], l.addr[:], l.proxy[:], nonce)

		patIdx := pattern.NoMatch
		if l.matcher != nil {
			patIdx = l.matcher.Match(l.addr[:])
		}
		zeros := -1
		if patIdx == pattern.NoMatch {
			if l.cfg.MinZeroBytes < 0 {
				continue
			}
			zeros = crypto.CountZeroBytes(l.addr[:])
			if zeros < l.cfg.MinZeroBytes {
				continue
			}
		}
		if zeros < 0 {
			zeros = crypto.CountZeroBytes(l.addr[:])
		}

		slot := atomic.AddInt64(claimed, 1) - 1
		if slot >= int64(len(results)) {
			continue
		}
		res := types.MatchResult{
			Nonce:        nonce,
			PatternIndex: patIdx,
			ZeroBytes:    zeros,
		}
		copy(res.Salt[:], l.inputBuf[saltOff:saltEnd])
		copy(res.Address[:], l.addr[:])
		results[slot] = res
	}
}
