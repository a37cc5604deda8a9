package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// ErrUnknownFunction is returned when no parameter list is known for a function.
var ErrUnknownFunction = errors.New("unknown function")

// ABIResolver supplies the non-signer parameter types of entry functions.
// Wire arguments are untyped JSON, so decoding a function call needs it.
type ABIResolver interface {
	ParamTypes(fn types.FunctionID) ([]types.TypeTag, error)
}

// ABI is a static parameter table. Keys are either fully-qualified
// ("0x1::coin::transfer") or module-relative ("Vault::deposit"); the
// latter matches the module wherever it is published.
type ABI map[string][]types.TypeTag

// ParamTypes looks up fn, preferring the fully-qualified key.
func (a ABI) ParamTypes(fn types.FunctionID) ([]types.TypeTag, error) {
	if params, ok := a[fn.String()]; ok {
		return params, nil
	}
	if params, ok := a[fn.Module.Name+"::"+fn.Name]; ok {
		return params, nil
	}
	return nil, fmt.Errorf("%s: %w", fn, ErrUnknownFunction)
}

// Merge returns a new table holding the entries of a and others. Later
// tables win on duplicate keys.
func (a ABI) Merge(others ...ABI) ABI {
	out := make(ABI, len(a))
	for k, v := range a {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// ParamsOf derives a parameter list from example arguments.
func ParamsOf(args ...Arg) []types.TypeTag {
	out := make([]types.TypeTag, len(args))
	for i, a := range args {
		out[i] = a.TypeTag()
	}
	return out
}
