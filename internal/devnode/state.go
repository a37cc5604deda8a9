package devnode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Framework type tags.
const (
	CoinStoreType = "0x1::coin::CoinStore"
	CoinInfoType  = "0x1::coin::CoinInfo"
	TestCoinType  = "0x1::test_coin::TestCoin"
)

type account struct {
	seq       uint64
	authKey   types.AuthKey
	resources map[string]json.RawMessage // canonical tag -> data
	modules   [][]byte
}

type txRecord struct {
	hash     types.Hash
	sender   types.Address
	seq      uint64
	success  bool
	vmStatus string
	version  uint64
	lookups  int
	changes  []Change
}

// Change is one write reported in a committed transaction.
type Change struct {
	Type    string          `json:"type"`
	Address types.Address   `json:"address"`
	Data    json.RawMessage `json:"data"`
}

// Call is an executing function call. Reads see the call's own writes;
// writes apply only if the handler returns nil.
type Call struct {
	Sender   types.Address
	Function types.FunctionID
	TypeArgs []types.TypeTag
	Args     []tx.Arg

	n      *Node
	writes map[resourceKey]json.RawMessage
	order  []resourceKey
}

// HandlerFunc executes an entry function. A returned error aborts the
// call; its message becomes the committed vm_status.
type HandlerFunc func(c *Call) error

type resourceKey struct {
	addr types.Address
	tag  string
}

// Abort is a Move-style abort.
type Abort struct {
	Module string
	Code   uint64
}

func (a *Abort) Error() string {
	return fmt.Sprintf("Move abort in %s: %d", a.Module, a.Code)
}

// Abort codes of the framework coin modules.
const (
	ECoinStoreNotPublished = 0x60005
	EInsufficientBalance   = 0x10006
	ECoinInfoExists        = 0x80002
	ENotCoinOwner          = 0x50001
)

var errBadArgs = errors.New("wrong argument count")

// Resource returns the data of resource tag at addr.
func (c *Call) Resource(addr types.Address, tag string) (json.RawMessage, bool) {
	key := resourceKey{addr, canonical(tag)}
	if raw, ok := c.writes[key]; ok {
		return raw, raw != nil
	}
	acct, ok := c.n.accounts[addr]
	if !ok {
		return nil, false
	}
	raw, ok := acct.resources[key.tag]
	return raw, ok
}

// SetResource writes data as resource tag at addr.
func (c *Call) SetResource(addr types.Address, tag string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode resource: %w", err)
	}
	key := resourceKey{addr, canonical(tag)}
	if _, seen := c.writes[key]; !seen {
		c.order = append(c.order, key)
	}
	c.writes[key] = raw
	return nil
}

// DecodeResource unmarshals resource tag at addr into v.
func (c *Call) DecodeResource(addr types.Address, tag string, v any) (bool, error) {
	raw, ok := c.Resource(addr, tag)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", tag, err)
	}
	return true, nil
}

// Balance returns the CoinStore balance of coinType at addr.
func (c *Call) Balance(addr types.Address, coinType string) (uint64, bool, error) {
	var store coinStore
	ok, err := c.DecodeResource(addr, coinStoreTag(coinType), &store)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseUint(store.Coin.Value, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("coin value: %w", err)
	}
	return v, true, nil
}

// SetBalance writes the CoinStore balance of coinType at addr.
func (c *Call) SetBalance(addr types.Address, coinType string, v uint64) error {
	return c.SetResource(addr, coinStoreTag(coinType), newCoinStore(v))
}

// Withdraw moves amount out of addr's CoinStore.
func (c *Call) Withdraw(addr types.Address, coinType string, amount uint64) error {
	bal, ok, err := c.Balance(addr, coinType)
	if err != nil {
		return err
	}
	if !ok {
		return &Abort{Module: "0x1::coin", Code: ECoinStoreNotPublished}
	}
	if bal < amount {
		return &Abort{Module: "0x1::coin", Code: EInsufficientBalance}
	}
	return c.SetBalance(addr, coinType, bal-amount)
}

// Deposit moves amount into addr's CoinStore, which must exist.
func (c *Call) Deposit(addr types.Address, coinType string, amount uint64) error {
	bal, ok, err := c.Balance(addr, coinType)
	if err != nil {
		return err
	}
	if !ok {
		return &Abort{Module: "0x1::coin", Code: ECoinStoreNotPublished}
	}
	return c.SetBalance(addr, coinType, bal+amount)
}

func (c *Call) apply() []Change {
	changes := make([]Change, 0, len(c.order))
	for _, key := range c.order {
		raw := c.writes[key]
		c.n.account(key.addr).resources[key.tag] = raw
		data, _ := json.Marshal(struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}{key.tag, raw})
		changes = append(changes, Change{Type: "write_resource", Address: key.addr, Data: data})
	}
	return changes
}

type coinStore struct {
	Coin struct {
		Value string `json:"value"`
	} `json:"coin"`
}

func newCoinStore(v uint64) coinStore {
	var s coinStore
	s.Coin.Value = strconv.FormatUint(v, 10)
	return s
}

func coinStoreTag(coinType string) string {
	return CoinStoreType + "<" + coinType + ">"
}

func canonical(tag string) string {
	if canon, err := types.CanonicalTypeTag(tag); err == nil {
		return canon
	}
	return tag
}

// account returns addr's account, creating it with the address as
// authentication key. Callers hold n.mu.
func (n *Node) account(addr types.Address) *account {
	acct, ok := n.accounts[addr]
	if !ok {
		acct = &account{
			authKey:   types.AuthKey(addr),
			resources: make(map[string]json.RawMessage),
		}
		n.accounts[addr] = acct
	}
	return acct
}

func (n *Node) nativeBalance(addr types.Address) uint64 {
	acct, ok := n.accounts[addr]
	if !ok {
		return 0
	}
	raw, ok := acct.resources[canonical(coinStoreTag(TestCoinType))]
	if !ok {
		return 0
	}
	var store coinStore
	if json.Unmarshal(raw, &store) != nil {
		return 0
	}
	v, _ := strconv.ParseUint(store.Coin.Value, 10, 64)
	return v
}
