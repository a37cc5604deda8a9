package config

import "time"

// Default endpoint URLs.
const (
	DevnetNodeURL   = "https://fullnode.devnet.aptoslabs.com"
	DevnetFaucetURL = "https://faucet.devnet.aptoslabs.com"
	TestnetNodeURL  = "https://fullnode.testnet.aptoslabs.com"
	LocalNodeURL    = "http://127.0.0.1:8080"
	LocalFaucetURL  = "http://127.0.0.1:8081"
)

// DefaultDevnet returns the default configuration for devnet.
func DefaultDevnet() *Config {
	return &Config{
		Network: Devnet,
		DataDir: DefaultDataDir(),
		Node: NodeConfig{
			URL:               DevnetNodeURL,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 20,
			Burst:             5,
		},
		Faucet: FaucetConfig{
			Enabled: true,
			URL:     DevnetFaucetURL,
		},
		Tx: TxConfig{
			ChainID:       4,
			MaxGasAmount:  1000,
			GasUnitPrice:  1,
			GasCurrency:   "XUS",
			ExpirationTTL: 10 * time.Minute,
		},
		Poll: PollConfig{
			MaxAttempts: 10,
			Interval:    time.Second,
			Backoff:     1,
			MaxInterval: 5 * time.Second,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "vaultclient",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
// Testnet has no public faucet.
func DefaultTestnet() *Config {
	cfg := DefaultDevnet()
	cfg.Network = Testnet
	cfg.Node.URL = TestnetNodeURL
	cfg.Faucet = FaucetConfig{}
	cfg.Tx.ChainID = 2
	return cfg
}

// DefaultLocal returns the default configuration for a local node.
func DefaultLocal() *Config {
	cfg := DefaultDevnet()
	cfg.Network = Local
	cfg.Node.URL = LocalNodeURL
	cfg.Node.RequestsPerSecond = 0
	cfg.Faucet.URL = LocalFaucetURL
	cfg.Poll.Interval = 250 * time.Millisecond
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Local:
		return DefaultLocal()
	default:
		return DefaultDevnet()
	}
}
