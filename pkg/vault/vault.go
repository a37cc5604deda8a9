// Package vault builds payloads for the managed coin framework module and
// the Vault module, and reads the state they keep.
package vault

import (
	"context"

	"github.com/Klingon-tech/vaultclient/pkg/client"
	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Module and struct names.
const (
	ModuleName      = "Vault"
	ManagedCoinName = "ManagedCoin"
	VaultHolderName = "VaultHolder"
)

// Framework functions.
var (
	managedInitialize = types.MustFunctionID("0x1::managed_coin::initialize")
	managedMint       = types.MustFunctionID("0x1::managed_coin::mint")
	coinRegister      = types.MustFunctionID("0x1::coin::register")
)

var (
	u64Tag     = types.TypeTag{Kind: types.KindU64}
	boolTag    = types.TypeTag{Kind: types.KindBool}
	addressTag = types.TypeTag{Kind: types.KindAddress}
	bytesTag   = types.TypeTag{Kind: types.KindVector, Elem: &types.TypeTag{Kind: types.KindU8}}
)

// ABI returns the parameter table of every function this package calls.
func ABI() tx.ABI {
	return tx.ABI{
		managedInitialize.String():     {bytesTag, bytesTag, u64Tag, boolTag},
		managedMint.String():           {addressTag, u64Tag},
		coinRegister.String():          {},
		ModuleName + "::init_vault":    {},
		ModuleName + "::pause_vault":   {},
		ModuleName + "::unpause_vault": {},
		ModuleName + "::deposit":       {u64Tag, addressTag},
		ModuleName + "::withdraw":      {u64Tag, addressTag},
	}
}

// CoinType is the managed coin published by owner: 0x{owner}::Vault::ManagedCoin.
func CoinType(owner types.Address) types.TypeTag {
	return types.NewStructTag(owner, ModuleName, ManagedCoinName)
}

// HolderType is the vault state struct of contract.
func HolderType(contract types.Address) types.TypeTag {
	return types.NewStructTag(contract, ModuleName, VaultHolderName)
}

// PublishModule publishes compiled module bytecode under the sender.
func PublishModule(bytecode []byte) tx.ModulePublish {
	return tx.ModulePublish{Modules: [][]byte{bytecode}}
}

// InitializeCoin creates the managed coin of owner. It must be sent by owner.
func InitializeCoin(owner types.Address, name, symbol string, decimals uint64, monitorSupply bool) tx.FunctionCall {
	return tx.FunctionCall{
		Function: managedInitialize,
		TypeArgs: []types.TypeTag{CoinType(owner)},
		Args:     []tx.Arg{tx.String(name), tx.String(symbol), tx.U64(decimals), tx.Bool(monitorSupply)},
	}
}

// RegisterCoin lets the sender receive the managed coin of coinOwner.
func RegisterCoin(coinOwner types.Address) tx.FunctionCall {
	return tx.FunctionCall{
		Function: coinRegister,
		TypeArgs: []types.TypeTag{CoinType(coinOwner)},
	}
}

// MintCoin mints amount of coinOwner's coin to receiver. It must be sent
// by coinOwner.
func MintCoin(coinOwner, receiver types.Address, amount uint64) tx.FunctionCall {
	return tx.FunctionCall{
		Function: managedMint,
		TypeArgs: []types.TypeTag{CoinType(coinOwner)},
		Args:     []tx.Arg{tx.AddressArg(receiver), tx.U64(amount)},
	}
}

func vaultCall(contract types.Address, name string, args ...tx.Arg) tx.FunctionCall {
	return tx.FunctionCall{
		Function: types.FunctionID{
			Module: types.ModuleID{Address: contract, Name: ModuleName},
			Name:   name,
		},
		Args: args,
	}
}

// InitVault creates the vault of contract.
func InitVault(contract types.Address) tx.FunctionCall {
	return vaultCall(contract, "init_vault")
}

// PauseVault stops deposits and withdrawals.
func PauseVault(contract types.Address) tx.FunctionCall {
	return vaultCall(contract, "pause_vault")
}

// UnpauseVault resumes deposits and withdrawals.
func UnpauseVault(contract types.Address) tx.FunctionCall {
	return vaultCall(contract, "unpause_vault")
}

// Deposit moves amount of the contract's managed coin from the sender into the vault.
func Deposit(contract types.Address, amount uint64) tx.FunctionCall {
	return vaultCall(contract, "deposit", tx.U64(amount), tx.AddressArg(contract))
}

// Withdraw returns amount of previously deposited coin to the sender.
func Withdraw(contract types.Address, amount uint64) tx.FunctionCall {
	return vaultCall(contract, "withdraw", tx.U64(amount), tx.AddressArg(contract))
}

// ResourceReader reads account resources; *client.Client implements it.
type ResourceReader interface {
	GetResource(ctx context.Context, addr types.Address, typeTag string) (*client.Resource, bool, error)
}

// ManagedCoinBalance returns account's balance of coinOwner's managed coin.
// ok is false when account has not registered the coin.
func ManagedCoinBalance(ctx context.Context, r ResourceReader, account, coinOwner types.Address) (uint64, bool, error) {
	res, ok, err := r.GetResource(ctx, account, client.CoinStoreType+"<"+CoinType(coinOwner).String()+">")
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := res.Uint64("coin", "value")
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// PauseStatus reads data.paused of the contract's VaultHolder at account.
// ok is false when account holds no VaultHolder.
func PauseStatus(ctx context.Context, r ResourceReader, contract, account types.Address) (paused, ok bool, err error) {
	res, ok, err := r.GetResource(ctx, account, HolderType(contract).String())
	if err != nil || !ok {
		return false, ok, err
	}
	paused, err = res.Bool("paused")
	if err != nil {
		return false, true, err
	}
	return paused, true, nil
}
