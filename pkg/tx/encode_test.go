package tx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

func signedTransfer(t *testing.T, scheme crypto.Scheme, seq uint64) (SignedEnvelope, *SignedTransaction) {
	t.Helper()
	key, addr := testKey(t, scheme, 9)
	rt, err := Build(addr, seq, transferCall(types.AccountOne, 42), testExpiry)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	env, st, err := SignAndEncode(rt, key)
	if err != nil {
		t.Fatalf("SignAndEncode() error: %v", err)
	}
	return env, st
}

func TestSignAndEncode_Shape(t *testing.T) {
	env, st := signedTransfer(t, crypto.SchemeEd25519, 3)

	var m map[string]any
	if err := json.Unmarshal(env, &m); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	checks := map[string]any{
		"type":                      "user_transaction",
		"sender":                    st.Raw.Sender.String(),
		"sequence_number":           "3",
		"max_gas_amount":            "1000",
		"gas_unit_price":            "1",
		"gas_currency_code":         "XUS",
		"expiration_timestamp_secs": "1700000000",
		"chain_id":                  float64(4),
	}
	for k, want := range checks {
		if m[k] != want {
			t.Errorf("%s = %v, want %v", k, m[k], want)
		}
	}

	payload := m["payload"].(map[string]any)
	if payload["type"] != PayloadTypeScriptFunction {
		t.Errorf("payload.type = %v", payload["type"])
	}
	if payload["function"] != "0x1::coin::transfer" {
		t.Errorf("payload.function = %v", payload["function"])
	}
	sig := m["signature"].(map[string]any)
	if sig["type"] != "ed25519_signature" {
		t.Errorf("signature.type = %v", sig["type"])
	}
	if !strings.HasPrefix(sig["public_key"].(string), "0x") {
		t.Error("public_key should be 0x-prefixed hex")
	}
}

func TestSignAndEncode_Canonical(t *testing.T) {
	env, _ := signedTransfer(t, crypto.SchemeEd25519, 0)
	// RFC 8785: sorted keys, no insignificant whitespace.
	if !bytes.HasPrefix(env, []byte(`{"chain_id":4,"expiration_timestamp_secs":`)) {
		t.Errorf("envelope is not canonical: %s", env)
	}
	if bytes.ContainsAny(env, "\n\t") {
		t.Error("envelope contains whitespace")
	}
}

func TestSignAndEncode_Deterministic(t *testing.T) {
	for _, s := range []crypto.Scheme{crypto.SchemeEd25519, crypto.SchemeSecp256k1} {
		a, _ := signedTransfer(t, s, 1)
		b, _ := signedTransfer(t, s, 1)
		if !bytes.Equal(a, b) {
			t.Errorf("%s: identical inputs produced different envelopes", s)
		}
		if a.Fingerprint() != Fingerprint(b) {
			t.Errorf("%s: fingerprints differ", s)
		}
	}
}

func TestSign_SenderMismatch(t *testing.T) {
	key, _ := testKey(t, crypto.SchemeEd25519, 1)
	_, other := testKey(t, crypto.SchemeEd25519, 2)
	rt, err := Build(other, 0, transferCall(other, 1), testExpiry)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if _, err := Sign(rt, key); !errors.Is(err, ErrSenderMismatch) {
		t.Errorf("Sign() error = %v, want ErrSenderMismatch", err)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, s := range []crypto.Scheme{crypto.SchemeEd25519, crypto.SchemeSecp256k1} {
		t.Run(s.String(), func(t *testing.T) {
			env, st := signedTransfer(t, s, 12)
			got, err := Decode(env, testABI)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if got.Raw.Sender != st.Raw.Sender {
				t.Errorf("Sender = %s, want %s", got.Raw.Sender, st.Raw.Sender)
			}
			if got.Raw.SequenceNumber != 12 {
				t.Errorf("SequenceNumber = %d, want 12", got.Raw.SequenceNumber)
			}
			if !bytes.Equal(got.Raw.Payload.Encode(), st.Raw.Payload.Encode()) {
				t.Error("payload did not round-trip")
			}
			if got.Hash() != st.Hash() {
				t.Error("hash changed across decode")
			}
			if err := got.Verify(); err != nil {
				t.Errorf("Verify() error: %v", err)
			}
		})
	}
}

func TestDecode_ModulePublish(t *testing.T) {
	key, addr := testKey(t, crypto.SchemeEd25519, 4)
	code := []byte{0xa1, 0x1c, 0xeb, 0x0b, 0x01}
	rt, err := Build(addr, 0, ModulePublish{Modules: [][]byte{code}}, testExpiry)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	env, _, err := SignAndEncode(rt, key)
	if err != nil {
		t.Fatalf("SignAndEncode() error: %v", err)
	}
	if !bytes.Contains(env, []byte(`"bytecode":"0xa11ceb0b01"`)) {
		t.Errorf("bytecode not rendered as 0x hex: %s", env)
	}

	got, err := Decode(env, nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	mp, ok := got.Raw.Payload.(ModulePublish)
	if !ok {
		t.Fatalf("payload type = %T, want ModulePublish", got.Raw.Payload)
	}
	if len(mp.Modules) != 1 || !bytes.Equal(mp.Modules[0], code) {
		t.Error("module bytecode did not round-trip")
	}
	if err := got.Verify(); err != nil {
		t.Errorf("Verify() error: %v", err)
	}
}

func TestEncode_EmptyModuleBundle(t *testing.T) {
	key, addr := testKey(t, crypto.SchemeEd25519, 4)
	rt, err := Build(addr, 0, ModulePublish{}, testExpiry)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if _, _, err := SignAndEncode(rt, key); err == nil {
		t.Error("expected error for empty module bundle")
	}
}

func TestDecode_UnknownFunction(t *testing.T) {
	env, _ := signedTransfer(t, crypto.SchemeEd25519, 0)
	if _, err := Decode(env, ABI{}); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Decode() error = %v, want ErrUnknownFunction", err)
	}
	if _, err := Decode(env, nil); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Decode(nil abi) error = %v, want ErrUnknownFunction", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	env, _ := signedTransfer(t, crypto.SchemeEd25519, 0)

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"wrong type", func(m map[string]any) { m["type"] = "pending_transaction" }},
		{"numeric sequence", func(m map[string]any) { m["sequence_number"] = 1 }},
		{"bad sequence", func(m map[string]any) { m["sequence_number"] = "x" }},
		{"missing payload", func(m map[string]any) { delete(m, "payload") }},
		{"unknown field", func(m map[string]any) { m["extra"] = true }},
		{"unknown signature type", func(m map[string]any) {
			m["signature"].(map[string]any)["type"] = "rsa_signature"
		}},
		{"unprefixed key", func(m map[string]any) {
			m["signature"].(map[string]any)["public_key"] = "abcd"
		}},
		{"unknown payload", func(m map[string]any) {
			m["payload"].(map[string]any)["type"] = "write_set_payload"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			if err := json.Unmarshal(env, &m); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			tt.mutate(m)
			data, err := json.Marshal(m)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if _, err := Decode(data, testABI); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestVerify_Failures(t *testing.T) {
	_, st := signedTransfer(t, crypto.SchemeEd25519, 0)

	tampered := *st
	tampered.Raw.SequenceNumber++
	if err := tampered.Verify(); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("tampered sequence: error = %v, want ErrInvalidSignature", err)
	}

	wrongSender := *st
	wrongSender.Raw.Sender = types.AccountOne
	if err := wrongSender.Verify(); !errors.Is(err, ErrSenderMismatch) {
		t.Errorf("wrong sender: error = %v, want ErrSenderMismatch", err)
	}

	noSig := *st
	noSig.Authenticator.Signature = nil
	if err := noSig.Verify(); !errors.Is(err, ErrMissingSig) {
		t.Errorf("missing signature: error = %v, want ErrMissingSig", err)
	}

	noKey := *st
	noKey.Authenticator.PublicKey = nil
	if err := noKey.Verify(); !errors.Is(err, ErrMissingPubKey) {
		t.Errorf("missing key: error = %v, want ErrMissingPubKey", err)
	}
}

type rejectAll struct{}

func (rejectAll) Verify(_, _, _ []byte) bool { return false }

func TestVerifyWith(t *testing.T) {
	_, st := signedTransfer(t, crypto.SchemeEd25519, 0)

	if err := st.VerifyWith(crypto.SchemeVerifier{Scheme: crypto.SchemeEd25519}); err != nil {
		t.Fatalf("VerifyWith(scheme verifier) error: %v", err)
	}
	if err := st.VerifyWith(rejectAll{}); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifyWith(rejectAll) error = %v, want ErrInvalidSignature", err)
	}
}
