package tx

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
)

// Payload variant tags in the canonical encoding.
const (
	payloadTagModuleBundle   = 1
	payloadTagScriptFunction = 2
)

// Wire payload type names.
const (
	PayloadTypeModuleBundle   = "module_bundle_payload"
	PayloadTypeScriptFunction = "script_function_payload"
)

// Payload is the action a transaction performs. The set of implementations
// is closed: ModulePublish and FunctionCall.
type Payload interface {
	bcs.Marshaler

	// Encode returns the canonical bytes of the payload, variant tag first.
	Encode() []byte

	wire() (any, error)
}

// ModulePublish publishes a bundle of compiled modules under the sender.
type ModulePublish struct {
	Modules [][]byte
}

// FunctionCall invokes an entry function. Args exclude the implicit signer.
type FunctionCall struct {
	Function types.FunctionID
	TypeArgs []types.TypeTag
	Args     []Arg
}

// ErrNilArg is returned for a function call with a nil argument.
var ErrNilArg = errors.New("argument is nil")

// MarshalBCS writes the module bundle, variant tag first.
func (p ModulePublish) MarshalBCS(ser *bcs.Serializer) {
	ser.Uleb128(payloadTagModuleBundle)
	ser.Uleb128(uint32(len(p.Modules)))
	for _, m := range p.Modules {
		ser.WriteBytes(m)
	}
}

// Encode returns the canonical bytes of the module bundle.
func (p ModulePublish) Encode() []byte { return encodeBCS(p) }

// MarshalBCS writes the function call, variant tag first. Each argument
// is serialized on its own and then written as a byte vector.
func (p FunctionCall) MarshalBCS(ser *bcs.Serializer) {
	ser.Uleb128(payloadTagScriptFunction)
	ser.FixedBytes(p.Function.Module.Address[:])
	ser.WriteString(p.Function.Module.Name)
	ser.WriteString(p.Function.Name)
	ser.Uleb128(uint32(len(p.TypeArgs)))
	for _, t := range p.TypeArgs {
		marshalTypeTag(ser, t)
	}
	ser.Uleb128(uint32(len(p.Args)))
	for i, a := range p.Args {
		if a == nil {
			ser.SetError(fmt.Errorf("%w: argument %d", ErrNilArg, i))
			return
		}
		ser.WriteBytes(a.Encode())
	}
}

// Encode returns the canonical bytes of the function call.
func (p FunctionCall) Encode() []byte { return encodeBCS(p) }

func marshalTypeTag(ser *bcs.Serializer, t types.TypeTag) {
	ser.Uleb128(uint32(t.Kind))
	switch t.Kind {
	case types.KindVector:
		if t.Elem != nil {
			marshalTypeTag(ser, *t.Elem)
		}
	case types.KindStruct:
		if t.Struct != nil {
			ser.FixedBytes(t.Struct.Address[:])
			ser.WriteString(t.Struct.Module)
			ser.WriteString(t.Struct.Name)
			ser.Uleb128(uint32(len(t.Struct.TypeParams)))
			for _, p := range t.Struct.TypeParams {
				marshalTypeTag(ser, p)
			}
		}
	}
}

// checkPayload rejects payloads that cannot be encoded.
func checkPayload(p Payload) error {
	var args []Arg
	switch v := p.(type) {
	case FunctionCall:
		args = v.Args
	case *FunctionCall:
		if v == nil {
			return ErrNilPayload
		}
		args = v.Args
	case *ModulePublish:
		if v == nil {
			return ErrNilPayload
		}
	}
	for i, a := range args {
		if a == nil {
			return fmt.Errorf("%w: argument %d", ErrNilArg, i)
		}
	}
	return nil
}

type moduleJSON struct {
	Bytecode string `json:"bytecode"`
}

type modulePayloadJSON struct {
	Type    string       `json:"type"`
	Modules []moduleJSON `json:"modules"`
}

type functionPayloadJSON struct {
	Type          string            `json:"type"`
	Function      types.FunctionID  `json:"function"`
	TypeArguments []types.TypeTag   `json:"type_arguments"`
	Arguments     []json.RawMessage `json:"arguments"`
}

func (p ModulePublish) wire() (any, error) {
	if len(p.Modules) == 0 {
		return nil, errors.New("module bundle is empty")
	}
	mods := make([]moduleJSON, len(p.Modules))
	for i, m := range p.Modules {
		if len(m) == 0 {
			return nil, fmt.Errorf("module %d is empty", i)
		}
		mods[i] = moduleJSON{Bytecode: "0x" + hex.EncodeToString(m)}
	}
	return modulePayloadJSON{Type: PayloadTypeModuleBundle, Modules: mods}, nil
}

func (p FunctionCall) wire() (any, error) {
	typeArgs := p.TypeArgs
	if typeArgs == nil {
		typeArgs = []types.TypeTag{}
	}
	args := make([]json.RawMessage, len(p.Args))
	for i, a := range p.Args {
		if a == nil {
			return nil, fmt.Errorf("%w: argument %d", ErrNilArg, i)
		}
		raw, err := json.Marshal(a.wireValue())
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = raw
	}
	return functionPayloadJSON{
		Type:          PayloadTypeScriptFunction,
		Function:      p.Function,
		TypeArguments: typeArgs,
		Arguments:     args,
	}, nil
}

// decodePayload parses a wire payload. Function arguments are typed using
// the parameter list abi reports for the function.
func decodePayload(raw json.RawMessage, abi ABIResolver) (Payload, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	switch head.Type {
	case PayloadTypeModuleBundle:
		var p modulePayloadJSON
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("module bundle: %w", err)
		}
		if len(p.Modules) == 0 {
			return nil, errors.New("module bundle is empty")
		}
		out := ModulePublish{Modules: make([][]byte, len(p.Modules))}
		for i, m := range p.Modules {
			code, err := hex.DecodeString(strings.TrimPrefix(m.Bytecode, "0x"))
			if err != nil {
				return nil, fmt.Errorf("module %d: %w", i, err)
			}
			out.Modules[i] = code
		}
		return out, nil

	case PayloadTypeScriptFunction:
		var p functionPayloadJSON
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("function payload: %w", err)
		}
		out := FunctionCall{Function: p.Function, TypeArgs: p.TypeArguments}
		if len(p.Arguments) == 0 {
			return out, nil
		}
		if abi == nil {
			return nil, fmt.Errorf("%s: %w", p.Function, ErrUnknownFunction)
		}
		params, err := abi.ParamTypes(p.Function)
		if err != nil {
			return nil, err
		}
		if len(params) != len(p.Arguments) {
			return nil, fmt.Errorf("%s: %w: got %d arguments, want %d",
				p.Function, ErrArgType, len(p.Arguments), len(params))
		}
		out.Args = make([]Arg, len(params))
		for i, param := range params {
			arg, err := decodeArg(param, p.Arguments[i])
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", p.Function, i, err)
			}
			out.Args[i] = arg
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown payload type %q", head.Type)
	}
}
