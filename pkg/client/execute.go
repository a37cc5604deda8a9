package client

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Execute fetches the sender's sequence number, builds and signs a
// transaction for payload and submits it. A stale sequence number
// rejection triggers exactly one refetch and retry.
//
// Execute does not serialize submissions from the same sender: two
// concurrent calls may fetch the same sequence number, and one of them
// is then rejected. Use ExecuteSerialized or hold a per-sender lock.
func (c *Client) Execute(ctx context.Context, s Sender, payload tx.Payload, opts ...tx.Option) (types.Hash, error) {
	hash, err := c.execute(ctx, s, payload, opts)
	if IsStaleSequence(err) {
		c.metrics.StaleRetry()
		log.WithAddress(c.logger, s.Address().Short()).Info().
			Msg("Stale sequence number, refetching")
		hash, err = c.execute(ctx, s, payload, opts)
	}
	return hash, err
}

// ExecuteSerialized is Execute holding a lock for the sender's address,
// so that submissions through this client never race on sequence numbers.
func (c *Client) ExecuteSerialized(ctx context.Context, s Sender, payload tx.Payload, opts ...tx.Option) (types.Hash, error) {
	l := c.addressLock(s.Address())
	l.Lock()
	defer l.Unlock()
	return c.Execute(ctx, s, payload, opts...)
}

// ExecuteAndWait runs ExecuteSerialized and waits for the outcome with the
// configured polling budget.
func (c *Client) ExecuteAndWait(ctx context.Context, s Sender, payload tx.Payload, opts ...tx.Option) (Outcome, error) {
	hash, err := c.ExecuteSerialized(ctx, s, payload, opts...)
	if err != nil {
		return Outcome{}, err
	}
	return c.Wait(ctx, hash)
}

func (c *Client) execute(ctx context.Context, s Sender, payload tx.Payload, opts []tx.Option) (types.Hash, error) {
	addr := s.Address()
	seq, err := c.FetchSequenceNumber(ctx, addr)
	if err != nil {
		return types.Hash{}, err
	}
	if sc, ok := s.(sequenceCache); ok {
		sc.SetSequenceNumber(seq)
	}

	expiration := c.now().Add(c.cfg.Tx.ExpirationTTL)
	all := append([]tx.Option{tx.WithConfig(c.cfg.Tx)}, opts...)
	rt, err := tx.Build(addr, seq, payload, expiration, all...)
	if err != nil {
		return types.Hash{}, fmt.Errorf("build transaction: %w", err)
	}
	envelope, st, err := tx.SignAndEncode(rt, s)
	if err != nil {
		return types.Hash{}, err
	}

	hash, err := c.Submit(ctx, envelope)
	if err != nil {
		return types.Hash{}, err
	}
	if local := st.Hash(); local != hash {
		log.WithAddress(c.logger, addr.Short()).Debug().
			Str("node", hash.String()).
			Str("local", local.String()).
			Msg("Node hash differs from local hash")
	}
	if sc, ok := s.(sequenceCache); ok {
		sc.SetSequenceNumber(seq + 1)
	}
	return hash, nil
}
