package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for obvious operator mistakes.
// It fills in MaxInterval when left at zero.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Devnet, Testnet, Local:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Devnet, Testnet, Local)
	}

	if err := validateURL(cfg.Node.URL, "node.url"); err != nil {
		return err
	}
	if cfg.Node.Timeout <= 0 {
		return fmt.Errorf("node.timeout must be positive")
	}
	if cfg.Node.RequestsPerSecond < 0 {
		return fmt.Errorf("node.rps must not be negative")
	}
	if cfg.Node.RequestsPerSecond > 0 && cfg.Node.Burst < 1 {
		return fmt.Errorf("node.burst must be at least 1 when node.rps is set")
	}

	if cfg.Faucet.Enabled {
		if err := validateURL(cfg.Faucet.URL, "faucet.url"); err != nil {
			return err
		}
	}

	if cfg.Tx.MaxGasAmount == 0 {
		return fmt.Errorf("tx.maxgas must be positive")
	}
	if cfg.Tx.GasCurrency == "" {
		return fmt.Errorf("tx.gascurrency is empty")
	}
	if cfg.Tx.ExpirationTTL <= 0 {
		return fmt.Errorf("tx.expiration must be positive")
	}

	if cfg.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll.attempts must not be negative")
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if cfg.Poll.Backoff < 1 {
		return fmt.Errorf("poll.backoff must be >= 1")
	}
	if cfg.Poll.MaxInterval == 0 {
		cfg.Poll.MaxInterval = cfg.Poll.Interval
	}
	if cfg.Poll.MaxInterval < cfg.Poll.Interval {
		return fmt.Errorf("poll.maxinterval must be >= poll.interval")
	}

	if cfg.Journal.Persistent && cfg.DataDir == "" {
		return fmt.Errorf("journal.persistent requires datadir")
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "warning", "error", "off", "disabled":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error, off", cfg.Log.Level)
	}
	return nil
}

func validateURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
