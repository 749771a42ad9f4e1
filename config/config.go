package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/marketplace"
)

// Config carries the daemon configuration loaded from TOML.
type Config struct {
	RPCAddress         string   `toml:"RPCAddress"`
	DataDir            string   `toml:"DataDir"`
	Env                string   `toml:"Env"`
	LogFile            string   `toml:"LogFile"`
	Treasury           string   `toml:"Treasury"`
	PlatformFeeBps     uint32   `toml:"PlatformFeeBps"`
	Operators          []string `toml:"Operators"`
	RateLimitPerMinute float64  `toml:"RateLimitPerMinute"`
	RateLimitBurst     int      `toml:"RateLimitBurst"`
	DevFaucet          bool     `toml:"DevFaucet"`
	EventBacklog       int      `toml:"EventBacklog"`
}

func defaults() *Config {
	return &Config{
		RPCAddress:         "127.0.0.1:8680",
		DataDir:            "./ins-data",
		Env:                "dev",
		PlatformFeeBps:     250,
		RateLimitPerMinute: 600,
		RateLimitBurst:     30,
		EventBacklog:       256,
	}
}

// Load loads the configuration from the given path, creating a default
// file when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := defaults()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaults()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fee bounds and address syntax. A missing treasury is
// allowed at load time so fresh nodes can boot; the engine refuses to
// settle until one is configured.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if c.PlatformFeeBps > marketplace.MaxPlatformFeeBps {
		return fmt.Errorf("PlatformFeeBps %d exceeds ceiling %d", c.PlatformFeeBps, marketplace.MaxPlatformFeeBps)
	}
	if strings.TrimSpace(c.Treasury) != "" {
		if _, err := ParseAddress(c.Treasury); err != nil {
			return fmt.Errorf("Treasury: %w", err)
		}
	}
	for _, op := range c.Operators {
		if _, err := ParseAddress(op); err != nil {
			return fmt.Errorf("Operators: %w", err)
		}
	}
	return nil
}

// TreasuryAddress returns the parsed treasury address and whether one is
// configured.
func (c *Config) TreasuryAddress() ([20]byte, bool) {
	if strings.TrimSpace(c.Treasury) == "" {
		return [20]byte{}, false
	}
	addr, err := ParseAddress(c.Treasury)
	if err != nil {
		return [20]byte{}, false
	}
	return addr, true
}

// OperatorAddresses returns the parsed operator set. Validate rejects
// malformed entries at load time, so failures here are skipped silently.
func (c *Config) OperatorAddresses() [][20]byte {
	out := make([][20]byte, 0, len(c.Operators))
	for _, op := range c.Operators {
		addr, err := ParseAddress(op)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) ([20]byte, error) {
	trimmed := strings.TrimSpace(s)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(trimmed), nil
}
