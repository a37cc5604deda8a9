package identity

import (
	"crypto/hmac"
	"crypto/sha512"
	"fmt"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// ed25519SeedKey is the SLIP-0010 HMAC key for Ed25519 master keys.
const ed25519SeedKey = "ed25519 seed"

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", &IdentityError{Op: "generate mnemonic", Err: err}
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", &IdentityError{Op: "generate mnemonic", Err: err}
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, word list membership and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// FromMnemonic restores an identity from a BIP-39 mnemonic and optional
// passphrase. Only the master key is used; there is no derivation path.
// Ed25519 takes the SLIP-0010 master key, secp256k1 the BIP-32 master key.
func FromMnemonic(mnemonic, passphrase string, scheme crypto.Scheme) (*Identity, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, &IdentityError{Op: "from mnemonic", Err: ErrInvalidMnemonic}
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, &IdentityError{Op: "from mnemonic", Err: fmt.Errorf("derive seed: %w", err)}
	}

	master, err := masterKey(scheme, seed)
	if err != nil {
		return nil, &IdentityError{Op: "from mnemonic", Err: err}
	}
	return New(scheme, master)
}

func masterKey(scheme crypto.Scheme, seed []byte) ([]byte, error) {
	switch scheme {
	case crypto.SchemeEd25519:
		mac := hmac.New(sha512.New, []byte(ed25519SeedKey))
		mac.Write(seed)
		return mac.Sum(nil)[:crypto.SeedSize], nil
	case crypto.SchemeSecp256k1:
		key, err := bip32.NewMasterKey(seed)
		if err != nil {
			return nil, fmt.Errorf("create master key: %w", err)
		}
		// bip32 private keys carry a leading zero byte.
		raw := key.Key
		if len(raw) == crypto.SeedSize+1 && raw[0] == 0 {
			raw = raw[1:]
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %s", scheme)
	}
}
