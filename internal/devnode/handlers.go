package devnode

import (
	"encoding/json"
	"errors"
	"io"
	"math/bits"
	"net/http"
	"strconv"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// VM status strings reported by the node.
const (
	StatusExecuted            = "Executed successfully"
	StatusSequenceTooOld      = "SEQUENCE_NUMBER_TOO_OLD"
	StatusSequenceTooNew      = "SEQUENCE_NUMBER_TOO_NEW"
	StatusInvalidSignature    = "INVALID_SIGNATURE"
	StatusInvalidAuthKey      = "INVALID_AUTH_KEY"
	StatusInsufficientBalance = "INSUFFICIENT_BALANCE_FOR_TRANSACTION_FEE"
	StatusExpired             = "TRANSACTION_EXPIRED"
	StatusBadChainID          = "BAD_CHAIN_ID"
	StatusAccountMissing      = "SENDING_ACCOUNT_DOES_NOT_EXIST"
	StatusMalformed           = "MALFORMED_TRANSACTION"
	StatusCodeDeserialization = "CODE_DESERIALIZATION_ERROR"
	StatusFunctionNotFound    = "FUNCTION_RESOLUTION_FAILURE"
)

// Error codes in the "code" field of error bodies.
const (
	CodeAccountNotFound     = "account_not_found"
	CodeResourceNotFound    = "resource_not_found"
	CodeTransactionNotFound = "transaction_not_found"
	CodeInvalidInput        = "invalid_input"
	CodeInvalidRequestBody  = "invalid_request_body"
	CodeVMError             = "vm_error"
)

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	VMStatus  string `json:"vm_status,omitempty"`
}

type accountResponse struct {
	SequenceNumber    string        `json:"sequence_number"`
	AuthenticationKey types.AuthKey `json:"authentication_key"`
}

type resourceResponse struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type transactionResponse struct {
	Type           string        `json:"type"`
	Hash           types.Hash    `json:"hash"`
	Sender         types.Address `json:"sender"`
	SequenceNumber string        `json:"sequence_number"`
	Version        string        `json:"version,omitempty"`
	Success        *bool         `json:"success,omitempty"`
	VMStatus       string        `json:"vm_status,omitempty"`
	Changes        []Change      `json:"changes,omitempty"`
}

func (n *Node) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), "")
		return
	}
	n.mu.Lock()
	acct, ok := n.accounts[addr]
	var resp accountResponse
	if ok {
		resp = accountResponse{
			SequenceNumber:    strconv.FormatUint(acct.seq, 10),
			AuthenticationKey: acct.authKey,
		}
	}
	n.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, CodeAccountNotFound, "Account not found: "+addr.String(), "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (n *Node) handleResource(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), "")
		return
	}
	tag, err := types.CanonicalTypeTag(r.PathValue("tag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), "")
		return
	}

	n.mu.Lock()
	var data json.RawMessage
	acct, ok := n.accounts[addr]
	if ok {
		data, ok = acct.resources[tag]
	}
	n.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, CodeResourceNotFound, "Resource not found: "+tag, "")
		return
	}
	writeJSON(w, http.StatusOK, resourceResponse{Type: tag, Data: data})
}

func (n *Node) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequestBody, "failed to read request body", StatusMalformed)
		return
	}
	if len(body) > maxBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, CodeInvalidRequestBody, "request body too large", StatusMalformed)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	st, err := tx.Decode(body, n.abi)
	if err != nil {
		status := StatusMalformed
		if errors.Is(err, tx.ErrUnknownFunction) {
			status = StatusFunctionNotFound
		}
		writeError(w, http.StatusBadRequest, CodeInvalidRequestBody, err.Error(), status)
		return
	}
	rec, status := n.admit(st)
	if status != "" {
		n.logger.Debug().
			Str("sender", st.Raw.Sender.Short()).
			Uint64("seq", st.Raw.SequenceNumber).
			Str("vm_status", status).
			Msg("Transaction rejected")
		writeError(w, http.StatusBadRequest, CodeVMError, "Invalid transaction: "+status, status)
		return
	}
	writeJSON(w, http.StatusAccepted, transactionResponse{
		Type:           "pending_transaction",
		Hash:           rec.hash,
		Sender:         rec.sender,
		SequenceNumber: strconv.FormatUint(rec.seq, 10),
	})
}

// admit validates st against current state and executes it. It returns
// the vm status of a rejection, or "" on acceptance. Callers hold n.mu.
func (n *Node) admit(st *tx.SignedTransaction) (*txRecord, string) {
	hash := st.Hash()
	if rec, ok := n.txs[hash]; ok {
		return rec, ""
	}

	switch err := st.Verify(); {
	case errors.Is(err, tx.ErrSenderMismatch):
		return nil, StatusInvalidAuthKey
	case errors.Is(err, tx.ErrInvalidSignature), errors.Is(err, tx.ErrMissingSig), errors.Is(err, tx.ErrMissingPubKey):
		return nil, StatusInvalidSignature
	case err != nil:
		return nil, StatusMalformed
	}

	raw := st.Raw
	if raw.ChainID != n.chainID {
		return nil, StatusBadChainID
	}
	if raw.ExpirationTimestampSecs <= uint64(n.now().Unix()) {
		return nil, StatusExpired
	}
	acct, ok := n.accounts[raw.Sender]
	if !ok {
		return nil, StatusAccountMissing
	}
	if acct.authKey != crypto.AuthKeyFromPubKey(st.Authenticator.PublicKey, st.Authenticator.Scheme) {
		return nil, StatusInvalidAuthKey
	}
	if raw.SequenceNumber < acct.seq {
		return nil, StatusSequenceTooOld
	}
	if raw.SequenceNumber > acct.seq {
		return nil, StatusSequenceTooNew
	}
	fee, err := raw.MaxFee()
	if err != nil || n.nativeBalance(raw.Sender) < fee {
		return nil, StatusInsufficientBalance
	}

	acct.seq++
	rec := &txRecord{hash: hash, sender: raw.Sender, seq: raw.SequenceNumber}
	n.execute(rec, raw)
	n.txs[hash] = rec
	n.logger.Debug().
		Str("hash", hash.String()).
		Bool("success", rec.success).
		Str("vm_status", rec.vmStatus).
		Msg("Transaction executed")
	return rec, ""
}

func (n *Node) execute(rec *txRecord, raw tx.RawTransaction) {
	n.version++
	rec.version = n.version
	rec.success = true
	rec.vmStatus = StatusExecuted

	switch p := raw.Payload.(type) {
	case tx.ModulePublish:
		for _, m := range p.Modules {
			if len(m) == 0 {
				rec.success = false
				rec.vmStatus = StatusCodeDeserialization
				return
			}
		}
		acct := n.account(raw.Sender)
		for _, m := range p.Modules {
			acct.modules = append(acct.modules, append([]byte(nil), m...))
		}
	case tx.FunctionCall:
		key, h := n.lookup(p.Function)
		if vm, failing := n.failures[key]; failing {
			rec.success = false
			rec.vmStatus = vm
			return
		}
		if h == nil {
			rec.success = false
			rec.vmStatus = StatusFunctionNotFound
			return
		}
		call := &Call{
			Sender:   raw.Sender,
			Function: p.Function,
			TypeArgs: p.TypeArgs,
			Args:     p.Args,
			n:        n,
			writes:   make(map[resourceKey]json.RawMessage),
		}
		if err := h(call); err != nil {
			rec.success = false
			rec.vmStatus = err.Error()
			return
		}
		rec.changes = call.apply()
	}
}

// lookup resolves fn to its registration key and handler, preferring a
// fully-qualified registration.
func (n *Node) lookup(fn types.FunctionID) (string, HandlerFunc) {
	full := fn.String()
	if _, ok := n.failures[full]; ok {
		return full, n.handlers[full]
	}
	if h, ok := n.handlers[full]; ok {
		return full, h
	}
	rel := fn.Module.Name + "::" + fn.Name
	return rel, n.handlers[rel]
}

func (n *Node) handleTransaction(w http.ResponseWriter, r *http.Request) {
	n.txLookups.Add(1)
	hash, err := types.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), "")
		return
	}

	n.mu.Lock()
	rec, ok := n.txs[hash]
	var resp transactionResponse
	if ok {
		resp = n.render(rec)
	}
	n.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, CodeTransactionNotFound, "Transaction not found: "+hash.String(), "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// render counts a lookup and returns the transaction as currently visible.
func (n *Node) render(rec *txRecord) transactionResponse {
	resp := transactionResponse{
		Hash:           rec.hash,
		Sender:         rec.sender,
		SequenceNumber: strconv.FormatUint(rec.seq, 10),
	}
	if rec.lookups < n.commit {
		rec.lookups++
		resp.Type = "pending_transaction"
		return resp
	}
	success := rec.success
	resp.Type = "user_transaction"
	resp.Version = strconv.FormatUint(rec.version, 10)
	resp.Success = &success
	resp.VMStatus = rec.vmStatus
	resp.Changes = rec.changes
	return resp
}

// handleMint is the faucet: it credits the test coin to the account of
// auth_key, creating it if needed, and returns the funding hashes.
func (n *Node) handleMint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseUint(q.Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid amount", "")
		return
	}
	key, err := types.ParseAuthKey(q.Get("auth_key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid auth_key: "+err.Error(), "")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	addr := key.Address()
	if _, ok := n.accounts[addr]; !ok {
		n.account(addr).authKey = key
	}

	call := &Call{Sender: types.AccountOne, n: n, writes: make(map[resourceKey]json.RawMessage)}
	bal, _, err := call.Balance(addr, TestCoinType)
	if err == nil {
		sum, carry := bits.Add64(bal, amount, 0)
		if carry != 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "amount overflows balance", "")
			return
		}
		err = call.SetBalance(addr, TestCoinType, sum)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeVMError, err.Error(), "")
		return
	}

	n.mints++
	var nonce [8]byte
	for i := range nonce {
		nonce[i] = byte(n.mints >> (8 * i))
	}
	hash := crypto.HashParts([]byte("devnode::mint"), key[:], nonce[:])
	rec := &txRecord{hash: hash, sender: types.AccountOne, seq: n.mints - 1, success: true, vmStatus: StatusExecuted}
	n.version++
	rec.version = n.version
	rec.changes = call.apply()
	n.txs[hash] = rec

	n.logger.Debug().
		Str("account", addr.Short()).
		Uint64("amount", amount).
		Msg("Faucet mint")
	writeJSON(w, http.StatusOK, []types.Hash{hash})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, vmStatus string) {
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   message,
		ErrorCode: vmStatus,
		VMStatus:  vmStatus,
	})
}
