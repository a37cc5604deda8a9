package tx

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
)

// Arg is a typed entry-function argument. The set of implementations is
// closed: U8, U64, U128, Bool, AddressArg and Bytes.
type Arg interface {
	bcs.Marshaler

	// TypeTag is the on-chain parameter type the argument satisfies.
	TypeTag() types.TypeTag
	// Encode returns the canonical bytes of the argument.
	Encode() []byte

	wireValue() any
}

// U8 is a u8 argument, rendered as a JSON number.
type U8 uint8

// U64 is a u64 argument, rendered as a decimal string.
type U64 uint64

// U128 is a u128 argument, rendered as a decimal string.
type U128 struct {
	Hi, Lo uint64
}

// Bool is a bool argument.
type Bool bool

// AddressArg is an address argument, rendered as 0x-prefixed hex.
type AddressArg types.Address

// Bytes is a vector<u8> argument, rendered as unprefixed hex.
type Bytes []byte

// String encodes s as a vector<u8> argument holding its UTF-8 bytes.
func String(s string) Bytes { return Bytes(s) }

var (
	u8Tag      = types.TypeTag{Kind: types.KindU8}
	u64Tag     = types.TypeTag{Kind: types.KindU64}
	u128Tag    = types.TypeTag{Kind: types.KindU128}
	boolTag    = types.TypeTag{Kind: types.KindBool}
	addressTag = types.TypeTag{Kind: types.KindAddress}
	bytesTag   = types.TypeTag{Kind: types.KindVector, Elem: &u8Tag}
)

func (U8) TypeTag() types.TypeTag         { return u8Tag }
func (U64) TypeTag() types.TypeTag        { return u64Tag }
func (U128) TypeTag() types.TypeTag       { return u128Tag }
func (Bool) TypeTag() types.TypeTag       { return boolTag }
func (AddressArg) TypeTag() types.TypeTag { return addressTag }
func (Bytes) TypeTag() types.TypeTag      { return bytesTag }

func (a U8) MarshalBCS(ser *bcs.Serializer)         { ser.U8(uint8(a)) }
func (a U64) MarshalBCS(ser *bcs.Serializer)        { ser.U64(uint64(a)) }
func (a U128) MarshalBCS(ser *bcs.Serializer)       { ser.U128(*a.Big()) }
func (a Bool) MarshalBCS(ser *bcs.Serializer)       { ser.Bool(bool(a)) }
func (a AddressArg) MarshalBCS(ser *bcs.Serializer) { ser.FixedBytes(a[:]) }
func (a Bytes) MarshalBCS(ser *bcs.Serializer)      { ser.WriteBytes(a) }

func (a U8) Encode() []byte         { return encodeBCS(a) }
func (a U64) Encode() []byte        { return encodeBCS(a) }
func (a U128) Encode() []byte       { return encodeBCS(a) }
func (a Bool) Encode() []byte       { return encodeBCS(a) }
func (a AddressArg) Encode() []byte { return encodeBCS(a) }
func (a Bytes) Encode() []byte      { return encodeBCS(a) }

func (a U8) wireValue() any         { return uint8(a) }
func (a U64) wireValue() any        { return strconv.FormatUint(uint64(a), 10) }
func (a U128) wireValue() any       { return a.String() }
func (a Bool) wireValue() any       { return bool(a) }
func (a AddressArg) wireValue() any { return types.Address(a).String() }
func (a Bytes) wireValue() any      { return hex.EncodeToString(a) }

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// NewU128 converts a non-negative big.Int that fits in 128 bits.
func NewU128(v *big.Int) (U128, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return U128{}, fmt.Errorf("value out of u128 range")
	}
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(v, 64)
	return U128{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
}

// Big returns the value as a big.Int.
func (a U128) Big() *big.Int {
	v := new(big.Int).SetUint64(a.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(a.Lo))
}

// String returns the decimal representation.
func (a U128) String() string { return a.Big().String() }

// ErrArgType is returned when a wire argument does not match its parameter type.
var ErrArgType = errors.New("argument does not match parameter type")

// decodeArg parses one wire argument as the given parameter type.
func decodeArg(t types.TypeTag, raw json.RawMessage) (Arg, error) {
	switch {
	case t.Kind == types.KindU8:
		var n uint8
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%w: u8: %v", ErrArgType, err)
		}
		return U8(n), nil
	case t.Kind == types.KindU64:
		s, err := wireString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: u64: %v", ErrArgType, err)
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: u64: %v", ErrArgType, err)
		}
		return U64(n), nil
	case t.Kind == types.KindU128:
		s, err := wireString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: u128: %v", ErrArgType, err)
		}
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("%w: u128: %q is not a decimal", ErrArgType, s)
		}
		return NewU128(v)
	case t.Kind == types.KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: bool: %v", ErrArgType, err)
		}
		return Bool(b), nil
	case t.Kind == types.KindAddress:
		s, err := wireString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: address: %v", ErrArgType, err)
		}
		addr, err := types.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArgType, err)
		}
		return AddressArg(addr), nil
	case t.Kind == types.KindVector && t.Elem != nil && t.Elem.Kind == types.KindU8:
		s, err := wireString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: vector<u8>: %v", ErrArgType, err)
		}
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: vector<u8>: %v", ErrArgType, err)
		}
		return Bytes(b), nil
	default:
		return nil, fmt.Errorf("%w: unsupported parameter type %s", ErrArgType, t)
	}
}

func wireString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
