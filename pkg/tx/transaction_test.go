package tx

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// testKey returns a deterministic signer and its address.
func testKey(t testing.TB, scheme crypto.Scheme, fill byte) (*crypto.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.PrivateKeyFromSeed(scheme, bytes.Repeat([]byte{fill}, crypto.SeedSize))
	if err != nil {
		t.Fatalf("PrivateKeyFromSeed() error: %v", err)
	}
	return key, crypto.AddressFromPubKey(key.PublicKey(), scheme)
}

var testExpiry = time.Unix(1_700_000_000, 0)

func transferCall(to types.Address, amount uint64) FunctionCall {
	return FunctionCall{
		Function: types.MustFunctionID("0x1::coin::transfer"),
		TypeArgs: []types.TypeTag{types.MustTypeTag("0x1::test_coin::TestCoin")},
		Args:     []Arg{AddressArg(to), U64(amount)},
	}
}

var testABI = ABI{
	"0x1::coin::transfer": {{Kind: types.KindAddress}, {Kind: types.KindU64}},
}

func TestCanonicalBytes_Layout(t *testing.T) {
	sender := types.Address{31: 0xaa}
	rt := &RawTransaction{
		Sender:                  sender,
		SequenceNumber:          7,
		Payload:                 ModulePublish{Modules: [][]byte{{0xde, 0xad}}},
		MaxGasAmount:            1000,
		GasUnitPrice:            1,
		GasCurrencyCode:         "XUS",
		ExpirationTimestampSecs: 99,
		ChainID:                 4,
	}

	got := rt.CanonicalBytes()

	var want []byte
	want = append(want, sender[:]...)
	want = binary.LittleEndian.AppendUint64(want, 7)
	want = append(want, 0x01, 0x01, 0x02, 0xde, 0xad) // tag, 1 module, len 2, bytes
	want = binary.LittleEndian.AppendUint64(want, 1000)
	want = binary.LittleEndian.AppendUint64(want, 1)
	want = append(want, 0x03, 'X', 'U', 'S')
	want = binary.LittleEndian.AppendUint64(want, 99)
	want = append(want, 4)

	if !bytes.Equal(got, want) {
		t.Errorf("CanonicalBytes() =\n%x\nwant\n%x", got, want)
	}
}

func TestSigningMessage_Prefix(t *testing.T) {
	_, addr := testKey(t, crypto.SchemeEd25519, 1)
	rt, err := Build(addr, 0, transferCall(addr, 1), testExpiry)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	msg := rt.SigningMessage()
	prefix := crypto.Hash([]byte("VAULT::RawTransaction"))
	if !bytes.HasPrefix(msg, prefix[:]) {
		t.Error("signing message must start with the domain prefix")
	}
	if !bytes.Equal(msg[32:], rt.CanonicalBytes()) {
		t.Error("signing message must end with the canonical bytes")
	}
}

func TestSignedTransaction_Hash(t *testing.T) {
	key, addr := testKey(t, crypto.SchemeEd25519, 2)
	rt, err := Build(addr, 3, transferCall(addr, 10), testExpiry)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	st, err := Sign(rt, key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	prefix := crypto.Hash([]byte("VAULT::Transaction"))
	var preimage []byte
	preimage = append(preimage, prefix[:]...)
	preimage = append(preimage, 0x00)
	preimage = append(preimage, rt.CanonicalBytes()...)
	preimage = append(preimage, st.Authenticator.Bytes()...)

	if st.Hash() != crypto.Hash(preimage) {
		t.Error("Hash() does not match the documented preimage")
	}
	if st.Hash() != st.Hash() {
		t.Error("Hash() should be deterministic")
	}
}

func TestHash_ChangesWithSequence(t *testing.T) {
	key, addr := testKey(t, crypto.SchemeEd25519, 3)
	rt0, _ := Build(addr, 0, transferCall(addr, 1), testExpiry)
	rt1, _ := Build(addr, 1, transferCall(addr, 1), testExpiry)
	st0, err := Sign(rt0, key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	st1, err := Sign(rt1, key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if st0.Hash() == st1.Hash() {
		t.Error("different sequence numbers should give different hashes")
	}
}

func TestMaxFee(t *testing.T) {
	rt := &RawTransaction{MaxGasAmount: 1000, GasUnitPrice: 3}
	fee, err := rt.MaxFee()
	if err != nil {
		t.Fatalf("MaxFee() error: %v", err)
	}
	if fee != 3000 {
		t.Errorf("MaxFee() = %d, want 3000", fee)
	}

	rt = &RawTransaction{MaxGasAmount: 1 << 40, GasUnitPrice: 1 << 40}
	if _, err := rt.MaxFee(); err == nil {
		t.Error("expected overflow error")
	}
}
