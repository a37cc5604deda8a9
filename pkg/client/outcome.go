package client

import (
	"encoding/json"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Status is the terminal state of a submission.
type Status string

const (
	CommittedSuccess Status = "committed_success"
	CommittedFailure Status = "committed_failure"
	TimedOut         Status = "timed_out"
)

// Outcome is the result of waiting for a submission.
type Outcome struct {
	Hash     types.Hash
	Status   Status
	VMStatus string
	Version  uint64
	Attempts int             // status reads performed
	Changes  json.RawMessage // write set reported by the node, if any
}

// Err maps a non-successful outcome to an error.
func (o Outcome) Err() error {
	switch o.Status {
	case CommittedSuccess:
		return nil
	case CommittedFailure:
		return &ExecutionError{Hash: o.Hash, VMStatus: o.VMStatus}
	default:
		return ErrSubmissionTimeout
	}
}

// PollOptions bound AwaitCompletion.
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
	Backoff     float64       // interval multiplier per attempt; <= 1 keeps it fixed
	MaxInterval time.Duration // 0 = no cap
}

// PollOptionsFrom converts the poll section of a config.
func PollOptionsFrom(cfg config.PollConfig) PollOptions {
	return PollOptions{
		MaxAttempts: cfg.MaxAttempts,
		Interval:    cfg.Interval,
		Backoff:     cfg.Backoff,
		MaxInterval: cfg.MaxInterval,
	}
}

func (o PollOptions) next(d time.Duration) time.Duration {
	if o.Backoff <= 1 {
		return d
	}
	d = time.Duration(float64(d) * o.Backoff)
	if o.MaxInterval > 0 && d > o.MaxInterval {
		d = o.MaxInterval
	}
	return d
}

// TransactionStatus is the node's view of a transaction.
type TransactionStatus struct {
	Type           string          `json:"type"`
	Hash           types.Hash      `json:"hash"`
	Sender         types.Address   `json:"sender"`
	SequenceNumber uint64          `json:"sequence_number,string"`
	Version        uint64          `json:"version,string,omitempty"`
	Success        *bool           `json:"success,omitempty"`
	VMStatus       string          `json:"vm_status,omitempty"`
	Changes        json.RawMessage `json:"changes,omitempty"`
}

// Pending reports whether the node has not committed the transaction yet.
func (s *TransactionStatus) Pending() bool {
	return s.Type == "pending_transaction" || s.Success == nil
}

func (s *TransactionStatus) outcome(attempts int) Outcome {
	o := Outcome{
		Hash:     s.Hash,
		Status:   CommittedFailure,
		VMStatus: s.VMStatus,
		Version:  s.Version,
		Attempts: attempts,
		Changes:  s.Changes,
	}
	if s.Success != nil && *s.Success {
		o.Status = CommittedSuccess
	}
	return o
}
