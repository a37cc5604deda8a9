package tx

import (
	"bytes"
	"testing"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var propABI = ABI{
	"0x1::prop::call": ParamsOf(U64(0), Bool(false), Bytes(nil), U8(0), AddressArg{}),
}

func propCall(amount uint64, flag bool, data []byte, small uint8, to byte) FunctionCall {
	return FunctionCall{
		Function: types.MustFunctionID("0x1::prop::call"),
		Args:     []Arg{U64(amount), Bool(flag), Bytes(data), U8(small), AddressArg(types.Address{31: to})},
	}
}

// Property: SignAndEncode(x) == SignAndEncode(x), and the result verifies.
func TestSignAndEncode_DeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	key, addr := testKey(t, crypto.SchemeEd25519, 0x5a)

	properties.Property("identical inputs give identical, verifiable envelopes", prop.ForAll(
		func(seq, amount uint64, flag bool, data []byte, small uint8) bool {
			rt, err := Build(addr, seq, propCall(amount, flag, data, small, 2), testExpiry)
			if err != nil {
				return false
			}
			a, st, err := SignAndEncode(rt, key)
			if err != nil {
				return false
			}
			b, _, err := SignAndEncode(rt, key)
			if err != nil {
				return false
			}
			return bytes.Equal(a, b) && st.Verify() == nil
		},
		gen.UInt64(),
		gen.UInt64(),
		gen.Bool(),
		gen.SliceOf(gen.UInt8()),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// Property: Decode(SignAndEncode(x)) recovers sender, sequence and payload.
func TestDecode_RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	key, addr := testKey(t, crypto.SchemeSecp256k1, 0x3c)

	properties.Property("decode recovers the signed transaction", prop.ForAll(
		func(seq, amount uint64, flag bool, data []byte, small, to uint8) bool {
			rt, err := Build(addr, seq, propCall(amount, flag, data, small, to), testExpiry)
			if err != nil {
				return false
			}
			env, st, err := SignAndEncode(rt, key)
			if err != nil {
				return false
			}
			got, err := Decode(env, propABI)
			if err != nil {
				return false
			}
			return got.Raw.Sender == st.Raw.Sender &&
				got.Raw.SequenceNumber == seq &&
				bytes.Equal(got.Raw.Payload.Encode(), st.Raw.Payload.Encode()) &&
				got.Hash() == st.Hash() &&
				got.Verify() == nil
		},
		gen.UInt64(),
		gen.UInt64(),
		gen.Bool(),
		gen.SliceOf(gen.UInt8()),
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// Property: the address derived from a key never depends on anything but the key.
func TestAddressPurityProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("address is a pure function of the public key", prop.ForAll(
		func(seed []byte) bool {
			if len(seed) != crypto.SeedSize {
				return true
			}
			k1, err := crypto.PrivateKeyFromSeed(crypto.SchemeEd25519, seed)
			if err != nil {
				return true
			}
			k2, _ := crypto.PrivateKeyFromSeed(crypto.SchemeEd25519, seed)
			return crypto.AddressFromPubKey(k1.PublicKey(), k1.Scheme()) ==
				crypto.AddressFromPubKey(k2.PublicKey(), k2.Scheme())
		},
		gen.SliceOfN(crypto.SeedSize, gen.UInt8()),
	))

	properties.TestingRun(t)
}
