// Package client submits signed transactions to a node, waits for their
// outcome and reads account state.
//
// A Client is safe for concurrent use. Submissions for different addresses
// are independent. Submissions for the same address race between fetching
// the sequence number and posting the envelope; Execute leaves that to the
// caller, ExecuteSerialized holds a per-address lock.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/internal/journal"
	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/internal/metrics"
	"github.com/Klingon-tech/vaultclient/internal/rpcclient"
	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/rs/zerolog"
)

// Sender is an account that can sign for itself.
type Sender interface {
	crypto.Signer
	Address() types.Address
}

// sequenceCache is implemented by senders that cache their sequence number.
type sequenceCache interface {
	SetSequenceNumber(n uint64)
}

// Client talks to one node.
type Client struct {
	cfg     *config.Config
	node    *rpcclient.Client
	journal *journal.Journal
	jset    bool // WithJournal was given
	owned   bool // journal was opened by New
	metrics *metrics.Metrics
	logger  zerolog.Logger
	hc      *http.Client
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	locks map[types.Address]*sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records requests and outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithJournal uses j instead of opening one from the config. The caller
// keeps ownership of j. A nil j disables journaling.
func WithJournal(j *journal.Journal) Option {
	return func(c *Client) {
		c.journal = j
		c.jset = true
	}
}

// WithHTTPClient replaces the HTTP client used for node requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithClock replaces time.Now for expiration timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleeper replaces the wait between status polls.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New creates a client for cfg.Node. Unless WithJournal is given, the
// journal described by cfg.Journal is opened and closed with the client.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	c := &Client{
		cfg:    cfg,
		logger: log.Client,
		now:    time.Now,
		sleep:  sleepContext,
		locks:  make(map[types.Address]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.jset {
		j, err := journal.Open(cfg)
		if err != nil {
			return nil, err
		}
		c.journal = j
		c.owned = true
	}

	rpcOpts := []rpcclient.Option{
		rpcclient.WithRateLimit(cfg.Node.RequestsPerSecond, cfg.Node.Burst),
		rpcclient.WithAPIKey(cfg.Node.APIKey),
		rpcclient.WithLogger(c.logger),
	}
	if c.hc != nil {
		rpcOpts = append(rpcOpts, rpcclient.WithHTTPClient(c.hc))
	}
	if c.metrics != nil {
		rpcOpts = append(rpcOpts, rpcclient.WithObserver(c.metrics.ObserveRequest))
	}
	node, err := rpcclient.NewWithTimeout(cfg.Node.URL, cfg.Node.Timeout, rpcOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("node client: %w", err)
	}
	c.node = node

	c.logger.Debug().
		Str("node", node.Endpoint()).
		Str("network", string(cfg.Network)).
		Bool("journal", c.journal != nil).
		Msg("Client created")
	return c, nil
}

// Close releases the journal if the client opened it.
func (c *Client) Close() error {
	if c.owned && c.journal != nil {
		return c.journal.Close()
	}
	return nil
}

// Config returns the client configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Metrics returns the metrics the client records to, possibly nil.
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

// PollOptions returns the polling budget from the config.
func (c *Client) PollOptions() PollOptions { return PollOptionsFrom(c.cfg.Poll) }

func (c *Client) addressLock(addr types.Address) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[addr]
	if !ok {
		l = new(sync.Mutex)
		c.locks[addr] = l
	}
	return l
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
