package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeKind identifies the shape of a TypeTag.
type TypeKind uint8

// Type kinds. The numeric values are part of the canonical transaction encoding.
const (
	KindBool TypeKind = iota
	KindU8
	KindU64
	KindU128
	KindAddress
	KindSigner
	KindVector
	KindStruct
	KindU16
	KindU32
	KindU256
)

var primitiveKinds = map[string]TypeKind{
	"bool":    KindBool,
	"u8":      KindU8,
	"u16":     KindU16,
	"u32":     KindU32,
	"u64":     KindU64,
	"u128":    KindU128,
	"u256":    KindU256,
	"address": KindAddress,
	"signer":  KindSigner,
}

// TypeTag is a parsed on-chain type: a primitive, vector<T>, or a struct.
type TypeTag struct {
	Kind   TypeKind
	Elem   *TypeTag   // KindVector only.
	Struct *StructTag // KindStruct only.
}

// StructTag names a struct type: address::module::Name<TypeParams...>.
type StructTag struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// ModuleID names a published module.
type ModuleID struct {
	Address Address
	Name    string
}

// FunctionID is a fully-qualified entry function: address::module::function.
type FunctionID struct {
	Module ModuleID
	Name   string
}

// String returns the canonical form, using short addresses.
func (t TypeTag) String() string {
	switch t.Kind {
	case KindVector:
		if t.Elem == nil {
			return "vector<>"
		}
		return "vector<" + t.Elem.String() + ">"
	case KindStruct:
		if t.Struct == nil {
			return ""
		}
		return t.Struct.String()
	}
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindU256:
		return "u256"
	case KindAddress:
		return "address"
	case KindSigner:
		return "signer"
	}
	return fmt.Sprintf("unknown(%d)", t.Kind)
}

// MarshalJSON encodes the tag as its canonical string.
func (t TypeTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a type tag string.
func (t *TypeTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTypeTag(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// String returns address::module::Name<...>.
func (s StructTag) String() string {
	var b strings.Builder
	b.WriteString(s.Address.Short())
	b.WriteString("::")
	b.WriteString(s.Module)
	b.WriteString("::")
	b.WriteString(s.Name)
	if len(s.TypeParams) > 0 {
		b.WriteByte('<')
		for i, p := range s.TypeParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteByte('>')
	}
	return b.String()
}

// NewStructTag is a convenience constructor for a struct TypeTag.
func NewStructTag(addr Address, module, name string, params ...TypeTag) TypeTag {
	return TypeTag{Kind: KindStruct, Struct: &StructTag{
		Address:    addr,
		Module:     module,
		Name:       name,
		TypeParams: params,
	}}
}

// String returns address::module.
func (m ModuleID) String() string {
	return m.Address.Short() + "::" + m.Name
}

// String returns address::module::function.
func (f FunctionID) String() string {
	return f.Module.String() + "::" + f.Name
}

// MarshalJSON encodes the function id as its canonical string.
func (f FunctionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON parses a function id string.
func (f *FunctionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFunctionID(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFunctionID parses "0x1::coin::register".
func ParseFunctionID(s string) (FunctionID, error) {
	parts := strings.Split(strings.TrimSpace(s), "::")
	if len(parts) != 3 {
		return FunctionID{}, fmt.Errorf("function id %q: want address::module::function", s)
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return FunctionID{}, fmt.Errorf("function id %q: %w", s, err)
	}
	if !isIdent(parts[1]) || !isIdent(parts[2]) {
		return FunctionID{}, fmt.Errorf("function id %q: invalid identifier", s)
	}
	return FunctionID{Module: ModuleID{Address: addr, Name: parts[1]}, Name: parts[2]}, nil
}

// MustFunctionID is ParseFunctionID for compile-time constants. It panics on error.
func MustFunctionID(s string) FunctionID {
	f, err := ParseFunctionID(s)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseTypeTag parses a type such as "u64", "vector<u8>" or
// "0x1::coin::CoinStore<0x1::test_coin::TestCoin>".
func ParseTypeTag(s string) (TypeTag, error) {
	p := &tagParser{src: s}
	tag, err := p.parseTag()
	if err != nil {
		return TypeTag{}, fmt.Errorf("type tag %q: %w", s, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeTag{}, fmt.Errorf("type tag %q: trailing input at offset %d", s, p.pos)
	}
	return tag, nil
}

// MustTypeTag is ParseTypeTag for compile-time constants. It panics on error.
func MustTypeTag(s string) TypeTag {
	t, err := ParseTypeTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

// CanonicalTypeTag re-renders a type tag string in canonical form so that
// "0x0001::a::B" and "0x1::a::B" compare equal.
func CanonicalTypeTag(s string) (string, error) {
	t, err := ParseTypeTag(s)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// maxTagDepth bounds generic nesting while parsing.
const maxTagDepth = 16

type tagParser struct {
	src   string
	pos   int
	depth int
}

func (p *tagParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *tagParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *tagParser) expect(tok string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], tok) {
		return fmt.Errorf("expected %q at offset %d", tok, p.pos)
	}
	p.pos += len(tok)
	return nil
}

func (p *tagParser) peek(tok string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], tok)
}

func (p *tagParser) parseTag() (TypeTag, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxTagDepth {
		return TypeTag{}, fmt.Errorf("nesting deeper than %d", maxTagDepth)
	}

	word := p.ident()
	if word == "" {
		return TypeTag{}, fmt.Errorf("expected type at offset %d", p.pos)
	}
	if word == "vector" {
		if err := p.expect("<"); err != nil {
			return TypeTag{}, err
		}
		elem, err := p.parseTag()
		if err != nil {
			return TypeTag{}, err
		}
		if err := p.expect(">"); err != nil {
			return TypeTag{}, err
		}
		return TypeTag{Kind: KindVector, Elem: &elem}, nil
	}
	if k, ok := primitiveKinds[word]; ok && !p.peek("::") {
		return TypeTag{Kind: k}, nil
	}

	addr, err := ParseAddress(word)
	if err != nil {
		return TypeTag{}, err
	}
	if err := p.expect("::"); err != nil {
		return TypeTag{}, err
	}
	module := p.ident()
	if !isIdent(module) {
		return TypeTag{}, fmt.Errorf("invalid module name at offset %d", p.pos)
	}
	if err := p.expect("::"); err != nil {
		return TypeTag{}, err
	}
	name := p.ident()
	if !isIdent(name) {
		return TypeTag{}, fmt.Errorf("invalid struct name at offset %d", p.pos)
	}

	st := &StructTag{Address: addr, Module: module, Name: name}
	if p.peek("<") {
		p.pos++
		for {
			param, err := p.parseTag()
			if err != nil {
				return TypeTag{}, err
			}
			st.TypeParams = append(st.TypeParams, param)
			if p.peek(",") {
				p.pos++
				continue
			}
			if err := p.expect(">"); err != nil {
				return TypeTag{}, err
			}
			break
		}
	}
	return TypeTag{Kind: KindStruct, Struct: st}, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
