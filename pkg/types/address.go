package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of an account address in bytes.
const AddressSize = 32

// Address is a 256-bit account address (authentication key of the creating key).
type Address [AddressSize]byte

// Well-known framework address.
var AccountOne = Address{31: 0x01}

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the 0x-prefixed, zero-padded hex form of the address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Short returns the 0x-prefixed hex form with leading zeros trimmed ("0x1").
func (a Address) Short() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address as a 0x-prefixed hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a 0x-prefixed or raw hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a hex address with or without the 0x prefix.
// Short forms ("0x1") are left-padded with zeros to 32 bytes.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	hexStr := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hexStr == "" {
		return Address{}, fmt.Errorf("invalid address %q", s)
	}
	if len(hexStr) > 2*AddressSize {
		return Address{}, fmt.Errorf("address must be at most %d bytes, got %d hex chars", AddressSize, len(hexStr))
	}
	if len(hexStr)%2 == 1 {
		hexStr = "0" + hexStr
	}
	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	var a Address
	copy(a[AddressSize-len(decoded):], decoded)
	return a, nil
}

// HexToAddress converts an exact 64-character hex string to an Address.
// For user-facing input that may be short or prefixed, use ParseAddress instead.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// AuthKey is the authentication key of an account. For single-signer
// accounts it is derived exactly like the address.
type AuthKey [AddressSize]byte

// String returns the 0x-prefixed hex form of the authentication key.
func (k AuthKey) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// Hex returns the raw hex-encoded key without prefix.
func (k AuthKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// Address returns the account address an authentication key creates.
func (k AuthKey) Address() Address {
	return Address(k)
}

// ParseAuthKey parses a hex authentication key with or without 0x.
func ParseAuthKey(s string) (AuthKey, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return AuthKey{}, fmt.Errorf("auth key: %w", err)
	}
	return AuthKey(a), nil
}

// MarshalJSON encodes the key as a 0x-prefixed hex string.
func (k AuthKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a hex string into an authentication key.
func (k *AuthKey) UnmarshalJSON(data []byte) error {
	var a Address
	if err := a.UnmarshalJSON(data); err != nil {
		return err
	}
	*k = AuthKey(a)
	return nil
}
