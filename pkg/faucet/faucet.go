// Package faucet funds accounts on networks that run a faucet.
package faucet

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/internal/metrics"
	"github.com/Klingon-tech/vaultclient/internal/rpcclient"
	"github.com/Klingon-tech/vaultclient/pkg/client"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned when the configured network has no faucet.
var ErrDisabled = errors.New("faucet disabled for this network")

// ErrNoTransactions is returned when the faucet answers without hashes.
var ErrNoTransactions = errors.New("faucet returned no transactions")

// Faucet is a faucet client. Waiting for funding transactions goes
// through the node client.
type Faucet struct {
	rpc     *rpcclient.Client
	node    *client.Client
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a faucet client for cfg.Faucet. node is used to wait for the
// funding transactions and supplies the metrics.
func New(cfg *config.Config, node *client.Client) (*Faucet, error) {
	if !cfg.Faucet.Enabled {
		return nil, ErrDisabled
	}
	f := &Faucet{
		node:    node,
		metrics: node.Metrics(),
		logger:  log.Faucet,
	}
	opts := []rpcclient.Option{rpcclient.WithLogger(f.logger)}
	if f.metrics != nil {
		opts = append(opts, rpcclient.WithObserver(f.metrics.ObserveRequest))
	}
	rpc, err := rpcclient.NewWithTimeout(cfg.Faucet.URL, cfg.Node.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("faucet client: %w", err)
	}
	f.rpc = rpc
	return f, nil
}

// Fund asks the faucet to mint amount to the account of authKey, creating
// the account if needed. It returns the funding transaction hashes.
func (f *Faucet) Fund(ctx context.Context, authKey types.AuthKey, amount uint64) ([]types.Hash, error) {
	q := url.Values{}
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("auth_key", authKey.Hex())

	var hashes []types.Hash
	if err := f.rpc.Post(ctx, "/mint", q, nil, &hashes); err != nil {
		return nil, &client.TransportError{Op: "faucet mint", Err: err}
	}
	if len(hashes) == 0 {
		return nil, ErrNoTransactions
	}
	f.metrics.FaucetFunded(amount)
	f.logger.Debug().
		Str("account", authKey.Address().Short()).
		Uint64("amount", amount).
		Int("txs", len(hashes)).
		Msg("Faucet funded account")
	return hashes, nil
}

// FundAndWait funds the account and waits until every funding
// transaction committed successfully.
func (f *Faucet) FundAndWait(ctx context.Context, authKey types.AuthKey, amount uint64) error {
	hashes, err := f.Fund(ctx, authKey, amount)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		out, err := f.node.Wait(ctx, h)
		if err != nil {
			return fmt.Errorf("wait for funding %s: %w", h, err)
		}
		if err := out.Err(); err != nil {
			return fmt.Errorf("funding %s: %w", h, err)
		}
	}
	return nil
}
