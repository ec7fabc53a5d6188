// Package pattern compiles textual address templates into a bit-level
// matchable form and evaluates candidate addresses against them.
//
// A pattern covers all 40 hex nibbles of an address. Each position is a
// literal hex digit, an `x` wildcard, or a bracketed 4-bit group like
// `[01x0]` constraining individual bits of the nibble. Literal letter case
// is recorded and, when case sensitivity is enabled, enforced against the
// EIP-55 checksum rendering of the candidate.
package pattern

import (
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/holiman/uint256"

	"github.com/Philogy/create3crunch/internal/crypto"
)

// NibbleCount is the number of hex nibbles in an address pattern.
const NibbleCount = 2 * crypto.AddressLen

// ErrEmptyPatternSet is returned when a set is built from zero patterns.
var ErrEmptyPatternSet = errors.New("pattern: at least one pattern required")

// InvalidPatternError reports a malformed pattern string.
type InvalidPatternError struct {
	Pattern string
	Pos     int
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s at position %d", e.Pattern, e.Reason, e.Pos)
}

type caseReq uint8

const (
	caseAny caseReq = iota
	caseLower
	caseUpper
)

// Pattern is a compiled 40-nibble address template: a 160-bit target and
// mask pair plus the per-position checksum-case requirements. Immutable
// once compiled.
type Pattern struct {
	source  string
	target  uint256.Int
	mask    uint256.Int
	caps    [NibbleCount]caseReq
	hasCaps bool
}

// Source returns the pattern string the compiler was given.
func (p *Pattern) Source() string { return p.source }

// Compile parses a pattern string into its matchable form. The optional
// "0x" prefix is stripped once; the remainder must describe exactly 40
// nibble positions.
func Compile(s string) (*Pattern, error) {
	body := strings.TrimPrefix(s, "0x")

	p := &Pattern{source: s}
	var targetBytes, maskBytes [crypto.AddressLen]byte

	nibble := 0
	inGroup := false
	groupBits := 0

	fail := func(pos int, reason string) (*Pattern, error) {
		return nil, &InvalidPatternError{Pattern: s, Pos: pos, Reason: reason}
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '[':
			if inGroup {
				return fail(i, "nested opening bracket")
			}
			if nibble >= NibbleCount {
				return fail(i, "pattern too long")
			}
			inGroup = true
			groupBits = 0
		case c == ']':
			if !inGroup {
				return fail(i, "closing bracket without opening bracket")
			}
			if groupBits != 4 {
				return fail(i, fmt.Sprintf("bit group must contain exactly 4 bit symbols, got %d", groupBits))
			}
			inGroup = false
			nibble++
		case inGroup:
			if groupBits == 4 {
				return fail(i, "bit group must contain exactly 4 bit symbols")
			}
			if c != '0' && c != '1' && c != 'x' && c != 'X' {
				return fail(i, fmt.Sprintf("invalid bit symbol %q, want 0, 1 or x", c))
			}
			// bit position within the nibble, most significant first
			shift := uint(1-nibble%2)*4 + uint(3-groupBits)
			if c == '1' {
				targetBytes[nibble/2] |= 1 << shift
			}
			if c != 'x' && c != 'X' {
				maskBytes[nibble/2] |= 1 << shift
			}
			groupBits++
		case c == 'x' || c == 'X':
			if nibble >= NibbleCount {
				return fail(i, "pattern too long")
			}
			nibble++
		default:
			val, capReq, ok := nibbleValue(c)
			if !ok {
				return fail(i, fmt.Sprintf("invalid character %q", c))
			}
			if nibble >= NibbleCount {
				return fail(i, "pattern too long")
			}
			shift := uint(1-nibble%2) * 4
			targetBytes[nibble/2] |= val << shift
			maskBytes[nibble/2] |= 0xf << shift
			p.caps[nibble] = capReq
			if capReq != caseAny {
				p.hasCaps = true
			}
			nibble++
		}
	}

	if inGroup {
		return fail(len(body), "unclosed bit group")
	}
	if nibble != NibbleCount {
		return fail(len(body), fmt.Sprintf("pattern has %d positions, want %d", nibble, NibbleCount))
	}

	p.target.SetBytes(targetBytes[:])
	p.mask.SetBytes(maskBytes[:])
	return p, nil
}

func nibbleValue(c byte) (val byte, capReq caseReq, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', caseAny, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, caseLower, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, caseUpper, true
	}
	return 0, caseAny, false
}

// Set is an ordered, immutable collection of compiled patterns. A candidate
// matches the set if it matches any member; the lowest index wins.
type Set struct {
	patterns      []*Pattern
	caseSensitive bool
}

// NewSet compiles the given pattern strings. The set must be non-empty.
// When caseSensitive is false the checksum-case requirements recorded by
// the compiler are ignored at match time.
func NewSet(specs []string, caseSensitive bool) (*Set, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyPatternSet
	}
	s := &Set{caseSensitive: caseSensitive}
	for _, spec := range specs {
		p, err := Compile(spec)
		if err != nil {
			return nil, err
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

// Len returns the number of patterns in the set.
func (s *Set) Len() int { return len(s.patterns) }

// Patterns returns the compiled members in order.
func (s *Set) Patterns() []*Pattern { return s.patterns }

// NoMatch is returned by Matcher.Match when no pattern accepts the address.
const NoMatch = -1

// Matcher evaluates addresses against a Set. It owns scratch buffers and a
// keccak state for checksum derivation, so it is not safe for concurrent
// use; create one per worker lane.
type Matcher struct {
	set      *Set
	hasher   hash.Hash
	hexBuf   [NibbleCount]byte
	hashBuf  [crypto.HashLen]byte
	addrWord uint256.Int
	scratch  uint256.Int
}

// NewMatcher creates a matcher bound to the set.
func (s *Set) NewMatcher() *Matcher {
	return &Matcher{set: s, hasher: crypto.NewKeccak()}
}

// Match returns the index of the first pattern the 20-byte address
// satisfies, or NoMatch. The cheap bit comparison runs first; the checksum
// hash is computed at most once per address and only when some surviving
// pattern actually constrains letter case.
func (m *Matcher) Match(addr20 []byte) int {
	m.addrWord.SetBytes(addr20)
	checksummed := false
	for i, p := range m.set.patterns {
		m.scratch.And(&m.addrWord, &p.mask)
		if !m.scratch.Eq(&p.target) {
			continue
		}
		if m.set.caseSensitive && p.hasCaps {
			if !checksummed {
				crypto.ChecksumHashInto(m.hasher, m.hexBuf[:], m.hashBuf[:], addr20)
				checksummed = true
			}
			if !m.capsMatch(p, addr20) {
				continue
			}
		}
		return i
	}
	return NoMatch
}

// capsMatch checks the checksum-case requirements of p against the checksum
// hash in m.hashBuf. Digit positions carry no requirement: the compiler only
// records case for letter literals, and the bit mask already forced the
// address nibble to that letter value.
func (m *Matcher) capsMatch(p *Pattern, addr20 []byte) bool {
	for i := 0; i < NibbleCount; i++ {
		req := p.caps[i]
		if req == caseAny {
			continue
		}
		shift := uint(1-i%2) * 4
		if (addr20[i/2]>>shift)&0xf < 10 {
			continue
		}
		upper := (m.hashBuf[i/2]>>shift)&0xf >= 8
		if upper != (req == caseUpper) {
			return false
		}
	}
	return true
}
