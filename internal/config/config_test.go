package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/Philogy/create3crunch/pkg/pattern"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Owner = "0x112233445566778899aabbccddeeff0102030405"
	cfg.Patterns = []string{strings.Repeat("x", 40)}
	return cfg
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() on valid config: %v", err)
	}
}

func TestValidateNoCriteria(t *testing.T) {
	cfg := validConfig()
	cfg.Patterns = nil
	cfg.TotalZeros = -1
	if err := cfg.Validate(); !errors.Is(err, ErrNoCriteria) {
		t.Errorf("Validate() error = %v, want ErrNoCriteria", err)
	}

	// a zero-byte threshold alone is a valid criterion
	cfg.TotalZeros = 4
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with only --total-zeros: %v", err)
	}
}

func TestValidateNoOwner(t *testing.T) {
	cfg := validConfig()
	cfg.Owner = ""
	if err := cfg.Validate(); !errors.Is(err, ErrNoOwner) {
		t.Errorf("Validate() error = %v, want ErrNoOwner", err)
	}
}

func TestValidateBadHex(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad factory", mutate: func(c *Config) { c.Factory = "0x1234" }},
		{name: "bad owner", mutate: func(c *Config) { c.Owner = "not-an-address" }},
		{name: "short init-code hash", mutate: func(c *Config) { c.InitCodeHash = "0x1decbc" }},
		{name: "non-hex init-code hash", mutate: func(c *Config) { c.InitCodeHash = "0x" + strings.Repeat("zz", 32) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var hexErr *InvalidHexError
			if !errors.As(err, &hexErr) {
				t.Errorf("Validate() error = %v, want InvalidHexError", err)
			}
		})
	}
}

func TestValidateBadPattern(t *testing.T) {
	cfg := validConfig()
	cfg.Patterns = []string{"tooshort"}
	err := cfg.Validate()
	var perr *pattern.InvalidPatternError
	if !errors.As(err, &perr) {
		t.Errorf("Validate() error = %v, want InvalidPatternError", err)
	}
}

func TestParsedValues(t *testing.T) {
	cfg := validConfig()

	factory, err := cfg.FactoryAddress()
	if err != nil {
		t.Fatalf("FactoryAddress() error: %v", err)
	}
	if factory[6] != 0xb3 || factory[19] != 0xaa {
		t.Errorf("factory bytes = %x", factory)
	}

	owner, err := cfg.OwnerAddress()
	if err != nil {
		t.Fatalf("OwnerAddress() error: %v", err)
	}
	if owner[0] != 0x11 || owner[19] != 0x05 {
		t.Errorf("owner bytes = %x", owner)
	}

	hash, err := cfg.InitCodeHashBytes()
	if err != nil {
		t.Fatalf("InitCodeHashBytes() error: %v", err)
	}
	if hash[0] != 0x1d || hash[31] != 0xc3 {
		t.Errorf("init-code hash bytes = %x", hash)
	}
}
