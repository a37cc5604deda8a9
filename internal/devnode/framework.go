package devnode

import (
	"fmt"

	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// ECoinStoreExists is raised when registering a coin twice.
const ECoinStoreExists = 0x80004

var (
	tagU64     = types.TypeTag{Kind: types.KindU64}
	tagBool    = types.TypeTag{Kind: types.KindBool}
	tagAddress = types.TypeTag{Kind: types.KindAddress}
	tagBytes   = types.TypeTag{Kind: types.KindVector, Elem: &types.TypeTag{Kind: types.KindU8}}
)

type coinInfo struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      uint64 `json:"decimals,string"`
	MonitorSupply bool   `json:"monitor_supply"`
	Supply        uint64 `json:"supply,string"`
}

func (n *Node) installFramework() {
	n.Handle("0x1::coin::register", nil, coinRegister)
	n.Handle("0x1::managed_coin::register", nil, coinRegister)
	n.Handle("0x1::coin::transfer", []types.TypeTag{tagAddress, tagU64}, coinTransfer)
	n.Handle("0x1::managed_coin::initialize", []types.TypeTag{tagBytes, tagBytes, tagU64, tagBool}, managedInitialize)
	n.Handle("0x1::managed_coin::mint", []types.TypeTag{tagAddress, tagU64}, managedMint)
}

func coinRegister(c *Call) error {
	coin, err := c.CoinType(0)
	if err != nil {
		return err
	}
	if _, ok := c.Resource(c.Sender, coinStoreTag(coin)); ok {
		return &Abort{Module: "0x1::coin", Code: ECoinStoreExists}
	}
	return c.SetBalance(c.Sender, coin, 0)
}

func coinTransfer(c *Call) error {
	coin, err := c.CoinType(0)
	if err != nil {
		return err
	}
	to, err := c.AddressArg(0)
	if err != nil {
		return err
	}
	amount, err := c.U64Arg(1)
	if err != nil {
		return err
	}
	if err := c.Withdraw(c.Sender, coin, amount); err != nil {
		return err
	}
	return c.Deposit(to, coin, amount)
}

func managedInitialize(c *Call) error {
	coin, err := c.CoinType(0)
	if err != nil {
		return err
	}
	if c.TypeArgs[0].Kind != types.KindStruct || c.TypeArgs[0].Struct.Address != c.Sender {
		return &Abort{Module: "0x1::managed_coin", Code: ENotCoinOwner}
	}
	if _, ok := c.Resource(c.Sender, CoinInfoType+"<"+coin+">"); ok {
		return &Abort{Module: "0x1::coin", Code: ECoinInfoExists}
	}
	name, err := c.BytesArg(0)
	if err != nil {
		return err
	}
	symbol, err := c.BytesArg(1)
	if err != nil {
		return err
	}
	decimals, err := c.U64Arg(2)
	if err != nil {
		return err
	}
	monitor, err := c.BoolArg(3)
	if err != nil {
		return err
	}
	return c.SetResource(c.Sender, CoinInfoType+"<"+coin+">", coinInfo{
		Name:          string(name),
		Symbol:        string(symbol),
		Decimals:      decimals,
		MonitorSupply: monitor,
	})
}

func managedMint(c *Call) error {
	coin, err := c.CoinType(0)
	if err != nil {
		return err
	}
	var info coinInfo
	ok, err := c.DecodeResource(c.Sender, CoinInfoType+"<"+coin+">", &info)
	if err != nil {
		return err
	}
	if !ok {
		return &Abort{Module: "0x1::managed_coin", Code: ENotCoinOwner}
	}
	to, err := c.AddressArg(0)
	if err != nil {
		return err
	}
	amount, err := c.U64Arg(1)
	if err != nil {
		return err
	}
	if err := c.Deposit(to, coin, amount); err != nil {
		return err
	}
	info.Supply += amount
	return c.SetResource(c.Sender, CoinInfoType+"<"+coin+">", info)
}

// CoinType returns type argument i rendered as a tag string.
func (c *Call) CoinType(i int) (string, error) {
	if i >= len(c.TypeArgs) {
		return "", fmt.Errorf("%s: missing type argument %d", c.Function, i)
	}
	return c.TypeArgs[i].String(), nil
}

// U64Arg returns argument i as a u64.
func (c *Call) U64Arg(i int) (uint64, error) {
	a, err := c.arg(i)
	if err != nil {
		return 0, err
	}
	v, ok := a.(tx.U64)
	if !ok {
		return 0, fmt.Errorf("%s: argument %d is %s, want u64", c.Function, i, a.TypeTag())
	}
	return uint64(v), nil
}

// AddressArg returns argument i as an address.
func (c *Call) AddressArg(i int) (types.Address, error) {
	a, err := c.arg(i)
	if err != nil {
		return types.Address{}, err
	}
	v, ok := a.(tx.AddressArg)
	if !ok {
		return types.Address{}, fmt.Errorf("%s: argument %d is %s, want address", c.Function, i, a.TypeTag())
	}
	return types.Address(v), nil
}

// BytesArg returns argument i as a byte vector.
func (c *Call) BytesArg(i int) ([]byte, error) {
	a, err := c.arg(i)
	if err != nil {
		return nil, err
	}
	v, ok := a.(tx.Bytes)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d is %s, want vector<u8>", c.Function, i, a.TypeTag())
	}
	return []byte(v), nil
}

// BoolArg returns argument i as a bool.
func (c *Call) BoolArg(i int) (bool, error) {
	a, err := c.arg(i)
	if err != nil {
		return false, err
	}
	v, ok := a.(tx.Bool)
	if !ok {
		return false, fmt.Errorf("%s: argument %d is %s, want bool", c.Function, i, a.TypeTag())
	}
	return bool(v), nil
}

func (c *Call) arg(i int) (tx.Arg, error) {
	if i >= len(c.Args) {
		return nil, fmt.Errorf("%s: argument %d: %w", c.Function, i, errBadArgs)
	}
	return c.Args[i], nil
}
