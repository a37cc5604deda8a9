package identity

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if words := strings.Fields(m); len(words) != 24 {
		t.Errorf("word count = %d, want 24", len(words))
	}
	if !ValidateMnemonic(m) {
		t.Error("generated mnemonic should validate")
	}
}

func TestMasterKey_Vectors(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")

	tests := []struct {
		scheme crypto.Scheme
		want   string
	}{
		// SLIP-0010 test vector 1 (ed25519).
		{crypto.SchemeEd25519, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7"},
		// BIP-32 test vector 1.
		{crypto.SchemeSecp256k1, "e8f32e723decf4051aefac8e2c93c9c5b214313817cdb01a1494b917c8436b35"},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			got, err := masterKey(tt.scheme, seed)
			if err != nil {
				t.Fatalf("masterKey() error: %v", err)
			}
			if hex.EncodeToString(got) != tt.want {
				t.Errorf("masterKey() = %x, want %s", got, tt.want)
			}
		})
	}
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	for _, s := range schemes {
		a, err := FromMnemonic(testMnemonic, "", s)
		if err != nil {
			t.Fatalf("FromMnemonic() error: %v", err)
		}
		b, err := FromMnemonic(testMnemonic, "", s)
		if err != nil {
			t.Fatalf("FromMnemonic() error: %v", err)
		}
		if a.Address() != b.Address() {
			t.Errorf("%s: same mnemonic gave different addresses", s)
		}

		c, err := FromMnemonic(testMnemonic, "TREZOR", s)
		if err != nil {
			t.Fatalf("FromMnemonic() error: %v", err)
		}
		if a.Address() == c.Address() {
			t.Errorf("%s: passphrase should change the identity", s)
		}
	}
}

func TestFromMnemonic_Invalid(t *testing.T) {
	_, err := FromMnemonic("abandon abandon abandon", "", crypto.SchemeEd25519)
	if !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("error = %v, want ErrInvalidMnemonic", err)
	}
	if _, err := FromMnemonic(testMnemonic, "", crypto.Scheme(7)); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
