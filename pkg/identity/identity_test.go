package identity

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
)

var schemes = []crypto.Scheme{crypto.SchemeEd25519, crypto.SchemeSecp256k1}

func TestNew_Random(t *testing.T) {
	for _, s := range schemes {
		a, err := New(s, nil)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		b, err := New(s, nil)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if a.Address() == b.Address() {
			t.Errorf("%s: two random identities share an address", s)
		}
		if a.Scheme() != s {
			t.Errorf("Scheme() = %s, want %s", a.Scheme(), s)
		}
	}
}

func TestNew_Seeded(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, crypto.SeedSize)
	for _, s := range schemes {
		a, err := New(s, seed)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		b, err := New(s, seed)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if a.Address() != b.Address() {
			t.Errorf("%s: same seed gave different addresses", s)
		}
	}
}

func TestNew_BadSeed(t *testing.T) {
	_, err := New(crypto.SchemeEd25519, []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for short seed")
	}
	var idErr *IdentityError
	if !errors.As(err, &idErr) {
		t.Errorf("error %T is not *IdentityError", err)
	}
}

func TestAddress_DerivedFromPublicKey(t *testing.T) {
	for _, s := range schemes {
		id, err := New(s, nil)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		want := crypto.AddressFromPubKey(id.PublicKey(), s)
		if id.Address() != want {
			t.Errorf("%s: Address() = %s, want %s", s, id.Address(), want)
		}
		if id.AuthenticationKey().Address() != id.Address() {
			t.Errorf("%s: auth key and address differ", s)
		}
		// Pure: repeated calls agree.
		if id.Address() != id.Address() || id.AuthenticationKey() != id.AuthenticationKey() {
			t.Errorf("%s: accessors are not stable", s)
		}
	}
}

func TestPublicKey_IsCopy(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	pub := id.PublicKey()
	pub[0] ^= 0xff
	if bytes.Equal(pub, id.PublicKey()) {
		t.Error("mutating the returned public key must not affect the identity")
	}
}

func TestSign_Verifies(t *testing.T) {
	msg := []byte("vault transaction")
	for _, s := range schemes {
		id, err := New(s, nil)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		sig, err := id.Sign(msg)
		if err != nil {
			t.Fatalf("Sign() error: %v", err)
		}
		if !crypto.VerifySignature(s, msg, sig, id.PublicKey()) {
			t.Errorf("%s: signature does not verify", s)
		}
	}
}

func TestSign_Errors(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var sigErr *SigningError
	if _, err := id.Sign(nil); !errors.As(err, &sigErr) {
		t.Errorf("Sign(nil) error = %v, want *SigningError", err)
	}

	id.Zero()
	if _, err := id.Sign([]byte("m")); !errors.As(err, &sigErr) {
		t.Errorf("Sign() after Zero error = %v, want *SigningError", err)
	}
	if id.Scheme() != crypto.SchemeEd25519 {
		t.Error("Scheme() should survive Zero")
	}
}

func TestFromPrivateKey(t *testing.T) {
	seed := bytes.Repeat([]byte{0x11}, crypto.SeedSize)
	for _, s := range schemes {
		want, err := New(s, seed)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		got, err := FromPrivateKey(s, seed)
		if err != nil {
			t.Fatalf("FromPrivateKey() error: %v", err)
		}
		if got.Address() != want.Address() {
			t.Errorf("%s: FromPrivateKey address mismatch", s)
		}
	}
}

func TestFromPrivateKey_Ed25519Expanded(t *testing.T) {
	seed := bytes.Repeat([]byte{0x22}, crypto.SeedSize)
	id, err := New(crypto.SchemeEd25519, seed)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	full := append(append([]byte{}, seed...), id.PublicKey()...)

	got, err := FromPrivateKey(crypto.SchemeEd25519, full)
	if err != nil {
		t.Fatalf("FromPrivateKey() error: %v", err)
	}
	if got.Address() != id.Address() {
		t.Error("64-byte key should restore the same identity")
	}

	full[len(full)-1] ^= 0x01
	if _, err := FromPrivateKey(crypto.SchemeEd25519, full); err == nil {
		t.Error("expected error when public half does not match")
	}
}

func TestSequenceNumber(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if id.SequenceNumber() != 0 {
		t.Errorf("initial SequenceNumber() = %d, want 0", id.SequenceNumber())
	}
	id.SetSequenceNumber(5)
	if got := id.IncrementSequenceNumber(); got != 6 {
		t.Errorf("IncrementSequenceNumber() = %d, want 6", got)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id.IncrementSequenceNumber()
		}()
	}
	wg.Wait()
	if got := id.SequenceNumber(); got != 106 {
		t.Errorf("SequenceNumber() = %d, want 106", got)
	}
}

func TestString_HidesKey(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got, want := id.String(), "identity("+id.Address().Short()+")"; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
