package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names. Each maps onto the config key of the same name.
const (
	FlagNetwork   = "network"
	FlagDataDir   = "datadir"
	FlagNodeURL   = "node.url"
	FlagFaucetURL = "faucet.url"
	FlagLogLevel  = "log.level"
	FlagLogJSON   = "log.json"
	FlagLogFile   = "log.file"
	FlagMetrics   = "metrics.listen"
	FlagJournal   = "journal.persistent"
)

// RegisterFlags adds the operational overrides to fs. Defaults are left
// empty so that an unset flag never masks a file or environment value.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagNetwork, "", "Network preset: devnet, testnet or local")
	fs.String(FlagDataDir, "", "Data directory")
	fs.String(FlagNodeURL, "", "Node REST endpoint")
	fs.String(FlagFaucetURL, "", "Faucet endpoint")
	fs.String(FlagLogLevel, "", "Log level: debug, info, warn, error")
	fs.Bool(FlagLogJSON, false, "Log in JSON format")
	fs.String(FlagLogFile, "", "Also write logs to this file")
	fs.String(FlagMetrics, "", "Serve Prometheus metrics on this address")
	fs.Bool(FlagJournal, false, "Keep the submission journal on disk")
}

// bindFlags binds only the flags the user actually set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if bindErr := v.BindPFlag(f.Name, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}
