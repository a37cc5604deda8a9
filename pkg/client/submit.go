package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/internal/rpcclient"
	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

type submitResponse struct {
	Hash types.Hash `json:"hash"`
}

// envelopeHeader is the part of a wire envelope the journal records.
type envelopeHeader struct {
	Sender         types.Address `json:"sender"`
	SequenceNumber string        `json:"sequence_number"`
}

// Submit posts a signed envelope and returns the hash the node assigned.
// An envelope already accepted earlier (same bytes) returns the journaled
// hash without contacting the node.
//
// Errors are a *TransportError when the node could not be reached or
// failed, or a *RejectionError when it refused the transaction.
func (c *Client) Submit(ctx context.Context, envelope tx.SignedEnvelope) (types.Hash, error) {
	fp := envelope.Fingerprint()
	if c.journal != nil {
		rec, ok, err := c.journal.LookupFingerprint(fp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Journal lookup failed")
		} else if ok {
			c.metrics.Submission("deduplicated")
			c.logger.Debug().Str("hash", rec.Hash.String()).Msg("Envelope already submitted")
			return rec.Hash, nil
		}
	}

	var resp submitResponse
	if err := c.node.Post(ctx, "/transactions", nil, envelope, &resp); err != nil {
		err = classifySubmit(err)
		var re *RejectionError
		if errors.As(err, &re) {
			c.metrics.Submission("rejected")
			c.metrics.Rejection(string(re.Reason))
			c.logger.Warn().
				Str("reason", string(re.Reason)).
				Str("vm_status", re.VMStatus).
				Msg("Transaction rejected")
		} else {
			c.metrics.Submission("transport")
		}
		return types.Hash{}, err
	}
	if resp.Hash.IsZero() {
		c.metrics.Submission("transport")
		return types.Hash{}, &TransportError{Op: "submit", Err: ErrNoHash}
	}
	c.metrics.Submission("accepted")

	var hdr envelopeHeader
	if err := json.Unmarshal(envelope, &hdr); err != nil {
		return resp.Hash, fmt.Errorf("read envelope header: %w", err)
	}
	seq, _ := strconv.ParseUint(hdr.SequenceNumber, 10, 64)
	log.WithAddress(c.logger, hdr.Sender.Short()).Debug().
		Str("hash", resp.Hash.String()).
		Uint64("seq", seq).
		Msg("Transaction submitted")

	if c.journal != nil {
		if err := c.journal.Submitted(fp, resp.Hash, hdr.Sender, seq); err != nil {
			c.logger.Warn().Err(err).Msg("Journal write failed")
		}
	}
	return resp.Hash, nil
}

// Status reads the node's view of a transaction once. It returns
// ErrTxNotFound when the node does not know the hash (yet).
func (c *Client) Status(ctx context.Context, hash types.Hash) (*TransactionStatus, error) {
	var st TransactionStatus
	err := c.node.Get(ctx, "/transactions/"+hash.String(), nil, &st)
	if rpcclient.IsNotFound(err, codeTransactionNotFound) {
		return nil, ErrTxNotFound
	}
	if err != nil {
		return nil, classifyRead("get transaction "+hash.String(), err)
	}
	if st.Hash.IsZero() {
		st.Hash = hash
	}
	return &st, nil
}
