package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"math/bits"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// CREATE2 preimage layout: 0xff (1) + factory (20) + salt (32) + initCodeHash (32) = 85
	Create2PrefixLen = 1 + 20
	Create2SaltLen   = 32
	Create2SuffixLen = 32
	Create2InputLen  = Create2PrefixLen + Create2SaltLen + Create2SuffixLen

	// Largest RLP encoding of (address, uint64 nonce):
	// list header (1) + 0x94 (1) + address (20) + nonce header (1) + nonce (8)
	CreateInputMax = 1 + 1 + 20 + 1 + 8

	AddressLen = 20
	HashLen    = 32
)

// NewKeccak returns a keccak256 hasher suitable for repeated
// Reset/Write/Sum cycles in the hot path.
func NewKeccak() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// Keccak256 calculates the keccak256 hash of the input bytes.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// PrimeCreate2Input writes the constant regions of the 85-byte CREATE2
// preimage: the 0xff marker, the factory address and the init-code hash.
// The salt region (bytes 21..53) is filled per candidate by the caller.
// inputBuf must be Create2InputLen (85) bytes.
func PrimeCreate2Input(inputBuf []byte, factory [AddressLen]byte, initCodeHash [HashLen]byte) {
	inputBuf[0] = 0xff
	copy(inputBuf[1:Create2PrefixLen], factory[:])
	copy(inputBuf[Create2PrefixLen+Create2SaltLen:], initCodeHash[:])
}

// Create2AddressInto hashes the CREATE2 preimage and writes the 20-byte
// address into addrBuf. Reuses the provided hasher to avoid allocations.
// inputBuf must be Create2InputLen (85) bytes, hashBuf at least 32 bytes,
// addrBuf 20 bytes.
func Create2AddressInto(hasher hash.Hash, inputBuf, hashBuf, addrBuf []byte) {
	hasher.Reset()
	hasher.Write(inputBuf)
	sum := hasher.Sum(hashBuf[:0])
	copy(addrBuf, sum[12:32])
}

// CreateAddressInto computes the CREATE address keccak256(rlp(deployer,
// nonce))[12:] and writes it into addrBuf. rlpBuf is the scratch space for
// the RLP encoding and must be at least CreateInputMax bytes.
func CreateAddressInto(hasher hash.Hash, rlpBuf, hashBuf, addrBuf, deployer []byte, nonce uint64) {
	n := rlpDeployerNonce(rlpBuf, deployer, nonce)
	hasher.Reset()
	hasher.Write(rlpBuf[:n])
	sum := hasher.Sum(hashBuf[:0])
	copy(addrBuf, sum[12:32])
}

// rlpDeployerNonce encodes the two-element list (deployer, nonce) into buf
// and returns the encoded length. The payload is at most 30 bytes so the
// list header is always a single byte. Nonce zero encodes as the empty
// string per the canonical RLP rule for integers.
func rlpDeployerNonce(buf, deployer []byte, nonce uint64) int {
	buf[1] = 0x80 + AddressLen
	copy(buf[2:2+AddressLen], deployer)
	i := 2 + AddressLen
	switch {
	case nonce == 0:
		buf[i] = 0x80
		i++
	case nonce < 0x80:
		buf[i] = byte(nonce)
		i++
	default:
		nlen := (bits.Len64(nonce) + 7) / 8
		buf[i] = 0x80 + byte(nlen)
		i++
		var be [8]byte
		binary.BigEndian.PutUint64(be[:], nonce)
		copy(buf[i:], be[8-nlen:])
		i += nlen
	}
	buf[0] = 0xc0 + byte(i-1)
	return i
}

// ChecksumHashInto hex-encodes addr20 in lowercase into hexBuf (40 bytes)
// and writes the keccak256 of that rendering into hashBuf. The checksum
// case of hex character i is upper iff the i-th nibble of the hash is >= 8.
func ChecksumHashInto(hasher hash.Hash, hexBuf, hashBuf, addr20 []byte) {
	hex.Encode(hexBuf, addr20)
	hasher.Reset()
	hasher.Write(hexBuf[:2*AddressLen])
	hasher.Sum(hashBuf[:0])
}

// CountZeroBytes returns how many of the address bytes are zero. Used to
// score found addresses, zero-dense addresses being cheaper to reference
// in calldata.
func CountZeroBytes(addr20 []byte) int {
	n := 0
	for _, b := range addr20 {
		if b == 0 {
			n++
		}
	}
	return n
}

// AddressBytesToChecksumString converts a 20-byte address to its EIP-55
// checksummed string. Only call when you need the string (result output).
func AddressBytesToChecksumString(addr20 []byte) string {
	if len(addr20) != AddressLen {
		panic(errors.New("address must be 20 bytes"))
	}
	return toChecksumAddress(addr20)
}

// toChecksumAddress converts a 20-byte address to an EIP-55 checksummed string.
func toChecksumAddress(addr20 []byte) string {
	hexLower := hex.EncodeToString(addr20)
	hash := Keccak256([]byte(hexLower))
	var out strings.Builder
	out.Grow(2 + 40)
	out.WriteString("0x")
	for i := 0; i < len(hexLower); i++ {
		c := hexLower[i]
		if c >= '0' && c <= '9' {
			out.WriteByte(c)
			continue
		}
		// each nibble of the hash decides the case of the matching hex char
		n := (hash[i/2] >> uint(4*(1-i%2))) & 0xF
		if n >= 8 {
			out.WriteByte(c - 'a' + 'A')
		} else {
			out.WriteByte(c)
		}
	}
	return out.String()
}
