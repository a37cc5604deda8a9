package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Klingon-tech/vaultclient/internal/rpcclient"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Sentinel errors.
var (
	ErrTxNotFound        = errors.New("transaction not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrSubmissionTimeout = errors.New("submission timed out")
	ErrNoHash            = errors.New("node returned no transaction hash")
)

// TransportError is a network or server failure. It is retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RequestError is a read the node refused as invalid, such as a malformed
// address or type tag. Retrying it unchanged fails the same way.
type RequestError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: request refused (%d %s): %s", e.Op, e.StatusCode, e.Code, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Node error codes that mean the queried object does not exist.
const (
	codeAccountNotFound     = "account_not_found"
	codeResourceNotFound    = "resource_not_found"
	codeTransactionNotFound = "transaction_not_found"
)

// RejectionReason classifies why the node refused a transaction.
type RejectionReason string

const (
	StaleSequence     RejectionReason = "StaleSequence"
	FutureSequence    RejectionReason = "FutureSequence"
	InvalidSignature  RejectionReason = "InvalidSignature"
	InsufficientFunds RejectionReason = "InsufficientFunds"
	ModuleValidation  RejectionReason = "ModuleValidation"
	Expired           RejectionReason = "Expired"
	Malformed         RejectionReason = "Malformed"
	Other             RejectionReason = "Other"
)

// RejectionError is returned when the node refuses a submission. Only
// StaleSequence is worth retrying, after refetching the sequence number.
type RejectionError struct {
	Reason     RejectionReason
	StatusCode int
	Code       string
	VMStatus   string
	Message    string
}

func (e *RejectionError) Error() string {
	if e.VMStatus != "" {
		return fmt.Sprintf("transaction rejected (%s): %s", e.Reason, e.VMStatus)
	}
	return fmt.Sprintf("transaction rejected (%s): %s", e.Reason, e.Message)
}

// ExecutionError is a transaction that committed but failed to execute.
type ExecutionError struct {
	Hash     types.Hash
	VMStatus string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Hash, e.VMStatus)
}

// IsStaleSequence reports whether err is a stale sequence number rejection.
func IsStaleSequence(err error) bool {
	var re *RejectionError
	return errors.As(err, &re) && re.Reason == StaleSequence
}

// IsRejection reports whether err carries a node rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// rejectionPatterns map vm status fragments to reasons, first match wins.
var rejectionPatterns = []struct {
	fragment string
	reason   RejectionReason
}{
	{"SEQUENCE_NUMBER_TOO_OLD", StaleSequence},
	{"SEQUENCE_NUMBER_TOO_NEW", FutureSequence},
	{"INVALID_SIGNATURE", InvalidSignature},
	{"INVALID_AUTH_KEY", InvalidSignature},
	{"INSUFFICIENT_BALANCE", InsufficientFunds},
	{"TRANSACTION_EXPIRED", Expired},
	{"CODE_DESERIALIZATION", ModuleValidation},
	{"MALFORMED", Malformed},
	{"MODULE", ModuleValidation},
	{"BYTECODE", ModuleValidation},
	{"DESERIALIZ", Malformed},
}

// classifyRead turns a failed read into a RequestError when the node
// answered a 4xx with an error body, and a TransportError otherwise.
// Callers handle the "does not exist" codes before calling it.
func classifyRead(op string, err error) error {
	var he *rpcclient.HTTPError
	if errors.As(err, &he) && he.Code != "" &&
		he.StatusCode >= http.StatusBadRequest && he.StatusCode < http.StatusInternalServerError &&
		he.StatusCode != http.StatusTooManyRequests {
		msg := he.Message
		if msg == "" {
			msg = he.Body
		}
		return &RequestError{Op: op, StatusCode: he.StatusCode, Code: he.Code, Message: msg, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// classifySubmit turns a submission failure into a RejectionError (4xx)
// or a TransportError (everything else).
func classifySubmit(err error) error {
	var he *rpcclient.HTTPError
	if !errors.As(err, &he) || he.StatusCode >= http.StatusInternalServerError || he.StatusCode == http.StatusTooManyRequests {
		return &TransportError{Op: "submit", Err: err}
	}
	re := &RejectionError{
		Reason:     Other,
		StatusCode: he.StatusCode,
		Code:       he.Code,
		VMStatus:   he.VMStatus,
		Message:    he.Message,
	}
	if re.Message == "" {
		re.Message = he.Body
	}
	status := strings.TrimSpace(he.VMStatus + " " + he.ErrorCode)
	if status == "" {
		status = he.Message
	}
	status = strings.ToUpper(status)
	for _, p := range rejectionPatterns {
		if strings.Contains(status, p.fragment) {
			re.Reason = p.reason
			return re
		}
	}
	if he.Code == "invalid_request_body" {
		re.Reason = Malformed
	}
	return re
}
