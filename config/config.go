// Package config handles client configuration.
//
// Every endpoint and tunable is carried in a Config value that is passed to
// client constructors; nothing is read from process-wide state, so tests can
// point a client at an in-process node.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies which network preset a Config starts from.
type NetworkType string

const (
	Devnet  NetworkType = "devnet"
	Testnet NetworkType = "testnet"
	Local   NetworkType = "local"
)

// Config holds the client configuration.
type Config struct {
	Network NetworkType `mapstructure:"network"`
	DataDir string      `mapstructure:"datadir"`

	// Node REST endpoint
	Node NodeConfig `mapstructure:"node"`

	// Faucet endpoint (devnet/testnet/local only)
	Faucet FaucetConfig `mapstructure:"faucet"`

	// Transaction envelope defaults
	Tx TxConfig `mapstructure:"tx"`

	// Completion polling
	Poll PollConfig `mapstructure:"poll"`

	// Submission journal
	Journal JournalConfig `mapstructure:"journal"`

	// Prometheus metrics
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Logging
	Log LogConfig `mapstructure:"log"`
}

// NodeConfig holds node endpoint settings.
type NodeConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"apikey"` // Sent as a bearer token when set.

	// Client-side request rate limit. Zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"rps"`
	Burst             int     `mapstructure:"burst"`
}

// FaucetConfig holds faucet settings.
type FaucetConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TxConfig holds the gas and expiration parameters stamped on every envelope.
type TxConfig struct {
	ChainID       uint8         `mapstructure:"chainid"`
	MaxGasAmount  uint64        `mapstructure:"maxgas"`
	GasUnitPrice  uint64        `mapstructure:"gasprice"`
	GasCurrency   string        `mapstructure:"gascurrency"`
	ExpirationTTL time.Duration `mapstructure:"expiration"` // Added to "now" when building.
}

// PollConfig controls how long AwaitCompletion waits for a terminal status.
type PollConfig struct {
	MaxAttempts int           `mapstructure:"attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	Backoff     float64       `mapstructure:"backoff"`     // Interval multiplier per attempt; 1 = fixed.
	MaxInterval time.Duration `mapstructure:"maxinterval"` // Cap for backoff growth.
}

// JournalConfig controls the submission journal.
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Persistent stores the journal under DataDir; otherwise it lives in memory.
	Persistent bool `mapstructure:"persistent"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Listen    string `mapstructure:"listen"` // Address for the demo's /metrics listener; empty = none.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.vaultclient
//	macOS:   ~/Library/Application Support/VaultClient
//	Windows: %APPDATA%\VaultClient
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vaultclient"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "VaultClient")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "VaultClient")
		}
		return filepath.Join(home, "AppData", "Roaming", "VaultClient")
	default:
		return filepath.Join(home, ".vaultclient")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// JournalDir returns the submission journal database directory.
func (c *Config) JournalDir() string {
	return filepath.Join(c.NetworkDataDir(), "journal")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the default config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "vaultclient.conf")
}
