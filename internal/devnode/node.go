// Package devnode runs an in-process node and faucet that speak the REST
// dialect the client uses. It keeps accounts, sequence numbers and resources
// in memory, verifies signatures, and executes a small framework of coin
// functions plus any handlers a test registers.
package devnode

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	klog "github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// DefaultChainID is the chain id the node accepts unless configured.
const DefaultChainID = tx.DefaultChainID

// Node is an emulated node. Effects of an accepted transaction apply at
// once; its status reads as pending for the first CommitAfter lookups.
type Node struct {
	mu        sync.Mutex
	accounts  map[types.Address]*account
	txs       map[types.Hash]*txRecord
	handlers  map[string]HandlerFunc
	failures  map[string]string
	abi       tx.ABI
	version   uint64
	mints     uint64
	chainID   uint8
	commit    int
	now       func() time.Time
	requests  atomic.Int64
	txLookups atomic.Int64

	server *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// Option configures a Node.
type Option func(*Node)

// WithChainID sets the accepted chain id.
func WithChainID(id uint8) Option {
	return func(n *Node) { n.chainID = id }
}

// WithCommitAfter sets how many status lookups report a transaction as
// pending before it reads as committed.
func WithCommitAfter(lookups int) Option {
	return func(n *Node) { n.commit = lookups }
}

// WithClock replaces time.Now for expiration checks.
func WithClock(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// WithABI adds parameter tables used to decode function arguments.
func WithABI(abi tx.ABI) Option {
	return func(n *Node) { n.abi = n.abi.Merge(abi) }
}

// New creates a node that is not yet listening.
func New(opts ...Option) *Node {
	n := &Node{
		accounts: make(map[types.Address]*account),
		txs:      make(map[types.Hash]*txRecord),
		handlers: make(map[string]HandlerFunc),
		failures: make(map[string]string),
		abi:      tx.ABI{},
		chainID:  DefaultChainID,
		commit:   1,
		now:      time.Now,
		logger:   klog.DevNode,
	}
	n.installFramework()
	for _, opt := range opts {
		opt(n)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts/{addr}", n.handleAccount)
	mux.HandleFunc("GET /accounts/{addr}/resource/{tag...}", n.handleResource)
	mux.HandleFunc("POST /transactions", n.handleSubmit)
	mux.HandleFunc("GET /transactions/{hash}", n.handleTransaction)
	mux.HandleFunc("POST /mint", n.handleMint)

	n.server = &http.Server{
		Handler:     n.count(mux),
		ReadTimeout: 30 * time.Second,
	}
	return n
}

// Start begins listening on a loopback port and serving in a background
// goroutine. It returns once the listener is bound.
func (n *Node) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("devnode listen: %w", err)
	}
	n.ln = ln

	go func() {
		if err := n.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			n.logger.Error().Err(err).Msg("Devnode server error")
		}
	}()
	n.logger.Debug().Str("addr", ln.Addr().String()).Msg("Devnode started")
	return nil
}

// Stop shuts the server down.
func (n *Node) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return n.server.Shutdown(ctx)
}

// URL returns the base URL of the node and its faucet.
func (n *Node) URL() string {
	if n.ln == nil {
		return ""
	}
	return "http://" + n.ln.Addr().String()
}

// Config returns a local configuration pointed at this node with fast
// polling and an in-memory journal.
func (n *Node) Config() *config.Config {
	cfg := config.DefaultLocal()
	cfg.DataDir = ""
	cfg.Node.URL = n.URL()
	cfg.Faucet.URL = n.URL()
	cfg.Tx.ChainID = n.chainID
	cfg.Poll.Interval = 5 * time.Millisecond
	cfg.Poll.MaxInterval = 20 * time.Millisecond
	cfg.Poll.MaxAttempts = 20
	cfg.Poll.Backoff = 2
	return cfg
}

// Requests returns the number of HTTP requests served.
func (n *Node) Requests() int64 { return n.requests.Load() }

// TransactionLookups returns the number of GET /transactions/{hash} requests.
func (n *Node) TransactionLookups() int64 { return n.txLookups.Load() }

// Handle registers an entry function. key is fully-qualified
// ("0x1::coin::transfer") or module-relative ("Vault::deposit");
// params are its non-signer parameter types.
func (n *Node) Handle(key string, params []types.TypeTag, h HandlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[key] = h
	n.abi[key] = params
}

// FailFunction makes every call of key commit as a failure with vmStatus.
func (n *Node) FailFunction(key, vmStatus string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[key] = vmStatus
}

// SetResource stores data as resource tag of addr, creating the account
// if needed.
func (n *Node) SetResource(addr types.Address, tag string, data any) error {
	canon, err := types.CanonicalTypeTag(tag)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode resource: %w", err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.account(addr).resources[canon] = raw
	return nil
}

// Resource returns the raw data of a resource.
func (n *Node) Resource(addr types.Address, tag string) (json.RawMessage, bool) {
	canon, err := types.CanonicalTypeTag(tag)
	if err != nil {
		return nil, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	acct, ok := n.accounts[addr]
	if !ok {
		return nil, false
	}
	raw, ok := acct.resources[canon]
	return raw, ok
}

// SequenceNumber returns the next expected sequence number of addr.
func (n *Node) SequenceNumber(addr types.Address) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if acct, ok := n.accounts[addr]; ok {
		return acct.seq
	}
	return 0
}

func (n *Node) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}
