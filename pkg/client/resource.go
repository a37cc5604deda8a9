package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/vaultclient/internal/rpcclient"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Framework coin types.
const (
	CoinStoreType  = "0x1::coin::CoinStore"
	NativeCoinType = "0x1::test_coin::TestCoin"
)

// Resource is a typed piece of account state.
type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Field returns the value at path inside Data. Segments may be dotted:
// Field("coin.value") equals Field("coin", "value").
func (r *Resource) Field(path ...string) (json.RawMessage, bool) {
	cur := r.Data
	for _, seg := range path {
		for _, key := range strings.Split(seg, ".") {
			if key == "" {
				continue
			}
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(cur, &obj); err != nil {
				return nil, false
			}
			next, ok := obj[key]
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return cur, true
}

// Uint64 reads an integer field. The node renders u64 values as decimal
// strings; plain JSON numbers are accepted too.
func (r *Resource) Uint64(path ...string) (uint64, error) {
	raw, ok := r.Field(path...)
	if !ok {
		return 0, fmt.Errorf("%s: field %s not found", r.Type, strings.Join(path, "."))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: field %s: %w", r.Type, strings.Join(path, "."), err)
	}
	return v, nil
}

// Bool reads a boolean field.
func (r *Resource) Bool(path ...string) (bool, error) {
	raw, ok := r.Field(path...)
	if !ok {
		return false, fmt.Errorf("%s: field %s not found", r.Type, strings.Join(path, "."))
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("%s: field %s: %w", r.Type, strings.Join(path, "."), err)
	}
	return b, nil
}

// GetResource reads resource typeTag of addr. A resource (or account) the
// node does not have is reported as absent, not as an error. A request the
// node refuses is a RequestError; any other failure, including a 404 that
// carries no node error code, is a TransportError.
func (c *Client) GetResource(ctx context.Context, addr types.Address, typeTag string) (*Resource, bool, error) {
	tag, err := types.CanonicalTypeTag(typeTag)
	if err != nil {
		return nil, false, err
	}
	var res Resource
	err = c.node.Get(ctx, "/accounts/"+addr.String()+"/resource/"+tag, nil, &res)
	if rpcclient.IsNotFound(err, codeResourceNotFound, codeAccountNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyRead("get resource "+tag, err)
	}
	return &res, true, nil
}

// Balance returns the coinType balance held by addr, reading
// CoinStore<coinType> at data.coin.value. ok is false when addr holds no
// store for the coin.
func (c *Client) Balance(ctx context.Context, addr types.Address, coinType string) (uint64, bool, error) {
	res, ok, err := c.GetResource(ctx, addr, CoinStoreType+"<"+coinType+">")
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := res.Uint64("coin", "value")
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// AccountBalance returns the native coin balance of addr, 0 when absent.
func (c *Client) AccountBalance(ctx context.Context, addr types.Address) (uint64, error) {
	v, _, err := c.Balance(ctx, addr, NativeCoinType)
	return v, err
}
