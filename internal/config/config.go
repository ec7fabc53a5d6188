package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Philogy/create3crunch/pkg/pattern"
)

// Defaults for the CREATE3 factory this tool was built against.
const (
	DefaultFactory      = "0x000000000000b361194cfe6312ee3210d53c15aa"
	DefaultInitCodeHash = "0x1decbcf04b355d500cbc3bd83c892545b4df34bd5b2c9d91b9f7f8165e2095c3"
	DefaultOutputFile   = "efficient_addresses.txt"
	DefaultBatchSize    = 1 << 18
	DefaultLogInterval  = 5
)

// Errors
var (
	ErrNoCriteria = errors.New("must specify at least one --pattern or --total-zeros")
	ErrNoOwner    = errors.New("--owner is required")
)

// InvalidHexError reports a malformed hex address or hash.
type InvalidHexError struct {
	Field string
	Value string
}

func (e *InvalidHexError) Error() string {
	return fmt.Sprintf("invalid hex value for %s: %q", e.Field, e.Value)
}

// Config holds the run configuration. Immutable once validated.
type Config struct {
	Factory       string
	Owner         string
	InitCodeHash  string
	Patterns      []string
	CaseSensitive bool
	MaxNonce      uint64
	TotalZeros    int // minimum zero bytes; negative disables
	Workers       int
	BatchSize     uint64 // salts per dispatch
	MatchCapacity int    // match slots per batch
	OutputFile    string
	PostURL       string
	Verbose       bool
	LogInterval   int // seconds between progress lines
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Factory:      DefaultFactory,
		InitCodeHash: DefaultInitCodeHash,
		MaxNonce:     1,
		TotalZeros:   -1,
		Workers:      runtime.NumCPU(),
		BatchSize:    DefaultBatchSize,
		OutputFile:   DefaultOutputFile,
		LogInterval:  DefaultLogInterval,
	}
}

// Validate checks the configuration. All pattern and hex errors surface
// here, before any dispatch begins.
func (c *Config) Validate() error {
	if len(c.Patterns) == 0 && c.TotalZeros < 0 {
		return ErrNoCriteria
	}
	if c.Owner == "" {
		return ErrNoOwner
	}
	if _, err := c.FactoryAddress(); err != nil {
		return err
	}
	if _, err := c.OwnerAddress(); err != nil {
		return err
	}
	if _, err := c.InitCodeHashBytes(); err != nil {
		return err
	}
	if len(c.Patterns) > 0 {
		if _, err := c.CompilePatterns(); err != nil {
			return err
		}
	}
	if c.BatchSize == 0 {
		return errors.New("--batch-size must be positive")
	}
	return nil
}

// FactoryAddress returns the factory address as raw bytes.
func (c *Config) FactoryAddress() ([20]byte, error) {
	return parseAddress("factory", c.Factory)
}

// OwnerAddress returns the owner address as raw bytes.
func (c *Config) OwnerAddress() ([20]byte, error) {
	return parseAddress("owner", c.Owner)
}

// InitCodeHashBytes returns the proxy init-code hash as raw bytes.
func (c *Config) InitCodeHashBytes() ([32]byte, error) {
	var hash [32]byte
	b, err := hexutil.Decode(c.InitCodeHash)
	if err != nil || len(b) != 32 {
		return hash, &InvalidHexError{Field: "init-code-hash", Value: c.InitCodeHash}
	}
	copy(hash[:], b)
	return hash, nil
}

// CompilePatterns compiles the configured pattern strings into a set.
func (c *Config) CompilePatterns() (*pattern.Set, error) {
	return pattern.NewSet(c.Patterns, c.CaseSensitive)
}

func parseAddress(field, value string) ([20]byte, error) {
	var addr [20]byte
	if !common.IsHexAddress(value) {
		return addr, &InvalidHexError{Field: field, Value: value}
	}
	copy(addr[:], common.HexToAddress(value).Bytes())
	return addr, nil
}
