package client

import (
	"context"
	"errors"

	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// AwaitCompletion polls the status of hash until the node reports a
// terminal state or opts.MaxAttempts reads were made. "Not found" and
// "pending" count as not yet. A TimedOut outcome is returned with a nil
// error when the budget runs out or ctx ends; MaxAttempts <= 0 times out
// without any request. Transport and request errors are returned as they
// occur.
//
// An outcome already recorded in the journal is returned without a node
// round trip; its Attempts is 0 and Changes is empty. AwaitCompletion
// never submits and may be called any number of times.
func (c *Client) AwaitCompletion(ctx context.Context, hash types.Hash, opts PollOptions) (Outcome, error) {
	out := Outcome{Hash: hash, Status: TimedOut}
	if opts.MaxAttempts <= 0 {
		c.metrics.Outcome(string(TimedOut), 0)
		return out, nil
	}
	if done, ok := c.journaled(hash); ok {
		return done, nil
	}

	interval := opts.Interval
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		out.Attempts = attempt

		st, err := c.Status(ctx, hash)
		switch {
		case errors.Is(err, ErrTxNotFound):
		case err != nil:
			if ctx.Err() != nil {
				return c.timedOut(out), nil
			}
			return out, err
		case !st.Pending():
			res := st.outcome(attempt)
			res.Hash = hash
			c.complete(res)
			return res, nil
		}

		if attempt == opts.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, interval); err != nil {
			break
		}
		interval = opts.next(interval)
	}
	return c.timedOut(out), nil
}

// Wait is AwaitCompletion with the configured polling budget.
func (c *Client) Wait(ctx context.Context, hash types.Hash) (Outcome, error) {
	return c.AwaitCompletion(ctx, hash, c.PollOptions())
}

// journaled returns the terminal outcome an earlier wait recorded for hash.
func (c *Client) journaled(hash types.Hash) (Outcome, bool) {
	if c.journal == nil {
		return Outcome{}, false
	}
	rec, ok, err := c.journal.Lookup(hash)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Journal lookup failed")
		return Outcome{}, false
	}
	if !ok || !rec.Done() {
		return Outcome{}, false
	}
	return Outcome{
		Hash:     hash,
		Status:   Status(rec.Status),
		VMStatus: rec.VMStatus,
		Version:  rec.Version,
	}, true
}

func (c *Client) timedOut(out Outcome) Outcome {
	out.Status = TimedOut
	c.metrics.Outcome(string(TimedOut), out.Attempts)
	c.logger.Debug().
		Str("hash", out.Hash.String()).
		Int("attempts", out.Attempts).
		Msg("Transaction still pending")
	return out
}

func (c *Client) complete(out Outcome) {
	c.metrics.Outcome(string(out.Status), out.Attempts)
	ev := c.logger.Debug()
	if out.Status == CommittedFailure {
		ev = c.logger.Warn()
	}
	ev.Str("hash", out.Hash.String()).
		Str("status", string(out.Status)).
		Str("vm_status", out.VMStatus).
		Uint64("version", out.Version).
		Msg("Transaction committed")

	if c.journal != nil {
		if err := c.journal.Completed(out.Hash, string(out.Status), out.VMStatus, out.Version); err != nil {
			c.logger.Warn().Err(err).Msg("Journal write failed")
		}
	}
}

// ResumePending waits for every journaled submission that has no recorded
// outcome yet, oldest first, e.g. after a restart with a persistent journal.
func (c *Client) ResumePending(ctx context.Context) ([]Outcome, error) {
	if c.journal == nil {
		return nil, nil
	}
	pending, err := c.journal.Pending()
	if err != nil {
		return nil, err
	}
	outs := make([]Outcome, 0, len(pending))
	for _, rec := range pending {
		out, err := c.Wait(ctx, rec.Hash)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}
