package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefault_Valid(t *testing.T) {
	for _, n := range []NetworkType{Devnet, Testnet, Local} {
		if err := Validate(Default(n)); err != nil {
			t.Errorf("Default(%s) does not validate: %v", n, err)
		}
	}
}

func TestDefault_Presets(t *testing.T) {
	if Default(Testnet).Faucet.Enabled {
		t.Error("testnet preset should have no faucet")
	}
	if got := Default(Local).Node.URL; got != LocalNodeURL {
		t.Errorf("local node URL = %s, want %s", got, LocalNodeURL)
	}
	if got := Default("unknown").Network; got != Devnet {
		t.Errorf("unknown network should fall back to devnet, got %s", got)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad network", func(c *Config) { c.Network = "mainnet" }},
		{"empty node url", func(c *Config) { c.Node.URL = "" }},
		{"non-http node url", func(c *Config) { c.Node.URL = "ftp://example.com" }},
		{"node url without host", func(c *Config) { c.Node.URL = "http://" }},
		{"zero timeout", func(c *Config) { c.Node.Timeout = 0 }},
		{"negative rps", func(c *Config) { c.Node.RequestsPerSecond = -1 }},
		{"rps without burst", func(c *Config) { c.Node.Burst = 0 }},
		{"faucet enabled without url", func(c *Config) { c.Faucet.URL = "" }},
		{"zero max gas", func(c *Config) { c.Tx.MaxGasAmount = 0 }},
		{"empty currency", func(c *Config) { c.Tx.GasCurrency = "" }},
		{"zero expiration", func(c *Config) { c.Tx.ExpirationTTL = 0 }},
		{"negative attempts", func(c *Config) { c.Poll.MaxAttempts = -1 }},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }},
		{"backoff below one", func(c *Config) { c.Poll.Backoff = 0.5 }},
		{"max interval below interval", func(c *Config) { c.Poll.MaxInterval = time.Millisecond }},
		{"persistent journal without datadir", func(c *Config) { c.Journal.Persistent = true; c.DataDir = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDevnet()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_FillsMaxInterval(t *testing.T) {
	cfg := DefaultDevnet()
	cfg.Poll.MaxInterval = 0
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.Poll.MaxInterval != cfg.Poll.Interval {
		t.Errorf("MaxInterval = %v, want %v", cfg.Poll.MaxInterval, cfg.Poll.Interval)
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Network != Devnet {
		t.Errorf("Network = %s, want devnet", cfg.Network)
	}
	if cfg.Node.URL != DevnetNodeURL {
		t.Errorf("Node.URL = %s, want %s", cfg.Node.URL, DevnetNodeURL)
	}
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.conf")
	if _, err := Load(path, nil); err != nil {
		t.Fatalf("Load() with missing file error: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultclient.conf")
	content := `# test config
network = local
node.url = http://127.0.0.1:9999
poll.attempts = 3
poll.interval = 50ms
tx.gascurrency = GAS
log.json = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Network != Local {
		t.Errorf("Network = %s, want local", cfg.Network)
	}
	if cfg.Node.URL != "http://127.0.0.1:9999" {
		t.Errorf("Node.URL = %s", cfg.Node.URL)
	}
	if cfg.Faucet.URL != LocalFaucetURL {
		t.Errorf("Faucet.URL = %s, want local preset %s", cfg.Faucet.URL, LocalFaucetURL)
	}
	if cfg.Poll.MaxAttempts != 3 {
		t.Errorf("Poll.MaxAttempts = %d, want 3", cfg.Poll.MaxAttempts)
	}
	if cfg.Poll.Interval != 50*time.Millisecond {
		t.Errorf("Poll.Interval = %v, want 50ms", cfg.Poll.Interval)
	}
	if cfg.Tx.GasCurrency != "GAS" {
		t.Errorf("Tx.GasCurrency = %s, want GAS", cfg.Tx.GasCurrency)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON should be true")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultclient.conf")
	if err := os.WriteFile(path, []byte("node.url = http://file.example:1\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VAULT_NODE_URL", "http://env.example:2")
	t.Setenv("VAULT_POLL_ATTEMPTS", "7")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Node.URL != "http://env.example:2" {
		t.Errorf("Node.URL = %s, want env value", cfg.Node.URL)
	}
	if cfg.Poll.MaxAttempts != 7 {
		t.Errorf("Poll.MaxAttempts = %d, want 7", cfg.Poll.MaxAttempts)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("VAULT_NODE_URL", "http://env.example:2")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--node.url=http://flag.example:3", "--log.level=debug"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Node.URL != "http://flag.example:3" {
		t.Errorf("Node.URL = %s, want flag value", cfg.Node.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoad_UnsetFlagsDoNotMask(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Node.URL != DevnetNodeURL {
		t.Errorf("Node.URL = %s, want default", cfg.Node.URL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("VAULT_POLL_BACKOFF", "0.1")
	if _, err := Load("", nil); err == nil {
		t.Error("expected error for invalid backoff")
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultclient.conf")
	if err := WriteDefaultConfig(path, Local); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := DefaultLocal()
	if cfg.Network != want.Network || cfg.Node.URL != want.Node.URL {
		t.Errorf("loaded %s/%s, want %s/%s", cfg.Network, cfg.Node.URL, want.Network, want.Node.URL)
	}
	if cfg.Poll != want.Poll {
		t.Errorf("Poll = %+v, want %+v", cfg.Poll, want.Poll)
	}
	if cfg.Tx != want.Tx {
		t.Errorf("Tx = %+v, want %+v", cfg.Tx, want.Tx)
	}
}

func TestDirectoryHelpers(t *testing.T) {
	cfg := &Config{Network: Devnet, DataDir: "/data"}
	if got := cfg.JournalDir(); got != filepath.Join("/data", "devnet", "journal") {
		t.Errorf("JournalDir() = %s", got)
	}
	if got := cfg.ConfigFile(); got != filepath.Join("/data", "vaultclient.conf") {
		t.Errorf("ConfigFile() = %s", got)
	}
}
