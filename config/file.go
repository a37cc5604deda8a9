package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. VAULT_NODE_URL.
const EnvPrefix = "VAULT"

// Load builds a Config from, in increasing priority: the network preset,
// the config file at path, VAULT_* environment variables and any flags in fs
// that were explicitly set. A missing file is not an error; an empty path
// skips the file entirely. fs may be nil.
//
// The file uses the same "key = value" layout WriteDefaultConfig emits,
// with dotted keys for nested sections.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("properties")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	network := NetworkType(strings.ToLower(v.GetString("network")))
	if network == "" {
		network = Devnet
	}
	cfg := Default(network)
	setDefaults(v, cfg)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Network = NetworkType(strings.ToLower(string(cfg.Network)))
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// setDefaults registers every key with viper so AutomaticEnv can see it
// during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("network", string(cfg.Network))
	v.SetDefault("datadir", cfg.DataDir)

	v.SetDefault("node.url", cfg.Node.URL)
	v.SetDefault("node.timeout", cfg.Node.Timeout)
	v.SetDefault("node.apikey", cfg.Node.APIKey)
	v.SetDefault("node.rps", cfg.Node.RequestsPerSecond)
	v.SetDefault("node.burst", cfg.Node.Burst)

	v.SetDefault("faucet.enabled", cfg.Faucet.Enabled)
	v.SetDefault("faucet.url", cfg.Faucet.URL)

	v.SetDefault("tx.chainid", cfg.Tx.ChainID)
	v.SetDefault("tx.maxgas", cfg.Tx.MaxGasAmount)
	v.SetDefault("tx.gasprice", cfg.Tx.GasUnitPrice)
	v.SetDefault("tx.gascurrency", cfg.Tx.GasCurrency)
	v.SetDefault("tx.expiration", cfg.Tx.ExpirationTTL)

	v.SetDefault("poll.attempts", cfg.Poll.MaxAttempts)
	v.SetDefault("poll.interval", cfg.Poll.Interval)
	v.SetDefault("poll.backoff", cfg.Poll.Backoff)
	v.SetDefault("poll.maxinterval", cfg.Poll.MaxInterval)

	v.SetDefault("journal.enabled", cfg.Journal.Enabled)
	v.SetDefault("journal.persistent", cfg.Journal.Persistent)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// WriteDefaultConfig writes a default client configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# Vault client configuration
#
# Every key can also be set through the environment, e.g.
#   VAULT_NODE_URL=http://127.0.0.1:8080

# Network preset: devnet, testnet or local
network = ` + string(cfg.Network) + `

# Data directory (default: ~/.vaultclient)
# datadir = ~/.vaultclient

# ============================================================================
# Node
# ============================================================================

node.url = ` + cfg.Node.URL + `
node.timeout = ` + cfg.Node.Timeout.String() + `
# node.apikey =

# Client-side rate limit (0 disables)
node.rps = ` + fmt.Sprint(cfg.Node.RequestsPerSecond) + `
node.burst = ` + fmt.Sprint(cfg.Node.Burst) + `

# ============================================================================
# Faucet
# ============================================================================

faucet.enabled = ` + fmt.Sprint(cfg.Faucet.Enabled) + `
faucet.url = ` + cfg.Faucet.URL + `

# ============================================================================
# Transactions
# ============================================================================

tx.chainid = ` + fmt.Sprint(cfg.Tx.ChainID) + `
tx.maxgas = ` + fmt.Sprint(cfg.Tx.MaxGasAmount) + `
tx.gasprice = ` + fmt.Sprint(cfg.Tx.GasUnitPrice) + `
tx.gascurrency = ` + cfg.Tx.GasCurrency + `
tx.expiration = ` + cfg.Tx.ExpirationTTL.String() + `

# ============================================================================
# Completion polling
# ============================================================================

poll.attempts = ` + fmt.Sprint(cfg.Poll.MaxAttempts) + `
poll.interval = ` + cfg.Poll.Interval.String() + `
poll.backoff = ` + fmt.Sprint(cfg.Poll.Backoff) + `
poll.maxinterval = ` + cfg.Poll.MaxInterval.String() + `

# ============================================================================
# Submission journal
# ============================================================================

journal.enabled = ` + fmt.Sprint(cfg.Journal.Enabled) + `
# Keep the journal on disk under datadir
journal.persistent = false

# ============================================================================
# Metrics
# ============================================================================

metrics.enabled = false
metrics.namespace = ` + cfg.Metrics.Namespace + `
# metrics.listen = 127.0.0.1:9464

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
