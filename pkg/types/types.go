package types

import "time"

// SaltLen is the size of a full salt in bytes: owner (20) + segment (4) +
// counter (8).
const SaltLen = 32

// SaltBatch describes a contiguous, disjoint range of candidate salts
// assigned to one dispatch. The full salt for lane i is
// owner ‖ Segment ‖ bigEndian64(Base+i); the owner half is fixed for the
// whole run and lives in the engine configuration.
type SaltBatch struct {
	Segment [4]byte // per-run random segment, salt bytes 20..24
	Base    uint64  // counter value of the batch's first lane, salt bytes 24..32
	Lanes   uint64  // number of consecutive salts in the batch
}

// MatchResult is a found salt: the full salt, the proxy nonce it was probed
// at, the resulting contract address and which pattern accepted it.
// PatternIndex is -1 when the address was accepted by the zero-byte
// threshold rather than a pattern.
type MatchResult struct {
	Salt         [SaltLen]byte
	Nonce        uint64
	Address      [20]byte
	PatternIndex int
	ZeroBytes    int
}

// BatchResult is what a device hands back for one evaluated batch.
// Truncated counts matches that were found but dropped because the
// fixed-capacity result buffer filled up within the batch.
type BatchResult struct {
	Matches   []MatchResult
	Truncated uint64
}

// RunCounters tracks process-wide progress. Owned and updated by the
// dispatch loop, once per completed batch; the compute tier never touches it.
type RunCounters struct {
	Salts     uint64 // salts evaluated
	Addresses uint64 // candidate addresses derived (salts x nonces probed)
	Matches   uint64
	Truncated uint64
	Batches   uint64
	Started   time.Time
}

// Elapsed returns the wall time since the run started.
func (c *RunCounters) Elapsed() time.Duration {
	return time.Since(c.Started)
}

// Rate returns the address derivation throughput in addresses per second.
func (c *RunCounters) Rate() float64 {
	secs := c.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(c.Addresses) / secs
}
