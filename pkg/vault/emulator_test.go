package vault

import (
	"github.com/Klingon-tech/vaultclient/internal/devnode"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Abort codes of the emulated Vault module.
const (
	eNotAdmin = iota + 1
	eAlreadyInitialized
	eNotInitialized
	ePaused
	eInsufficientDeposit
)

type holderState struct {
	Paused bool   `json:"paused"`
	Total  uint64 `json:"total,string"`
}

type depositState struct {
	Amount uint64 `json:"amount,string"`
}

func depositTag(contract types.Address) string {
	return types.NewStructTag(contract, ModuleName, "Deposit").String()
}

// installVault registers an emulation of the Vault module on n.
func installVault(n *devnode.Node) {
	abi := ABI()
	abort := func(code uint64) error { return &devnode.Abort{Module: ModuleName, Code: code} }

	loadHolder := func(c *devnode.Call) (types.Address, holderState, error) {
		contract := c.Function.Module.Address
		var h holderState
		ok, err := c.DecodeResource(contract, HolderType(contract).String(), &h)
		if err != nil {
			return contract, h, err
		}
		if !ok {
			return contract, h, abort(eNotInitialized)
		}
		return contract, h, nil
	}

	n.Handle(ModuleName+"::init_vault", abi[ModuleName+"::init_vault"], func(c *devnode.Call) error {
		contract := c.Function.Module.Address
		if c.Sender != contract {
			return abort(eNotAdmin)
		}
		if _, ok := c.Resource(contract, HolderType(contract).String()); ok {
			return abort(eAlreadyInitialized)
		}
		return c.SetResource(contract, HolderType(contract).String(), holderState{})
	})

	setPaused := func(paused bool) devnode.HandlerFunc {
		return func(c *devnode.Call) error {
			contract, h, err := loadHolder(c)
			if err != nil {
				return err
			}
			if c.Sender != contract {
				return abort(eNotAdmin)
			}
			h.Paused = paused
			return c.SetResource(contract, HolderType(contract).String(), h)
		}
	}
	n.Handle(ModuleName+"::pause_vault", abi[ModuleName+"::pause_vault"], setPaused(true))
	n.Handle(ModuleName+"::unpause_vault", abi[ModuleName+"::unpause_vault"], setPaused(false))

	move := func(deposit bool) devnode.HandlerFunc {
		return func(c *devnode.Call) error {
			contract, h, err := loadHolder(c)
			if err != nil {
				return err
			}
			if h.Paused {
				return abort(ePaused)
			}
			amount, err := c.U64Arg(0)
			if err != nil {
				return err
			}
			var d depositState
			if _, err := c.DecodeResource(c.Sender, depositTag(contract), &d); err != nil {
				return err
			}
			coin := CoinType(contract).String()
			if deposit {
				if err := c.Withdraw(c.Sender, coin, amount); err != nil {
					return err
				}
				d.Amount += amount
				h.Total += amount
			} else {
				if d.Amount < amount {
					return abort(eInsufficientDeposit)
				}
				if err := c.Deposit(c.Sender, coin, amount); err != nil {
					return err
				}
				d.Amount -= amount
				h.Total -= amount
			}
			if err := c.SetResource(c.Sender, depositTag(contract), d); err != nil {
				return err
			}
			return c.SetResource(contract, HolderType(contract).String(), h)
		}
	}
	n.Handle(ModuleName+"::deposit", abi[ModuleName+"::deposit"], move(true))
	n.Handle(ModuleName+"::withdraw", abi[ModuleName+"::withdraw"], move(false))
}
