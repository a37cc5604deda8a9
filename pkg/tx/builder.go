package tx

import (
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Envelope defaults.
const (
	DefaultMaxGasAmount = 1000
	DefaultGasUnitPrice = 1
	DefaultGasCurrency  = "XUS"
	DefaultChainID      = 4
)

// Build errors.
var (
	ErrNilPayload  = errors.New("payload is nil")
	ErrZeroSender  = errors.New("sender is the zero address")
	ErrExpiration  = errors.New("expiration is before the unix epoch")
	ErrZeroMaxGas  = errors.New("max gas amount is zero")
	ErrNoCurrency  = errors.New("gas currency is empty")
	ErrFeeOverflow = errors.New("max fee overflows")
)

// Option adjusts a RawTransaction during Build.
type Option func(*RawTransaction)

// WithMaxGas sets the maximum gas units the transaction may consume.
func WithMaxGas(n uint64) Option {
	return func(rt *RawTransaction) { rt.MaxGasAmount = n }
}

// WithGasUnitPrice sets the price per gas unit.
func WithGasUnitPrice(p uint64) Option {
	return func(rt *RawTransaction) { rt.GasUnitPrice = p }
}

// WithGasCurrency sets the currency gas is paid in.
func WithGasCurrency(code string) Option {
	return func(rt *RawTransaction) { rt.GasCurrencyCode = code }
}

// WithChainID sets the chain the transaction is valid on.
func WithChainID(id uint8) Option {
	return func(rt *RawTransaction) { rt.ChainID = id }
}

// WithConfig applies the gas and chain settings of cfg.
func WithConfig(cfg config.TxConfig) Option {
	return func(rt *RawTransaction) {
		rt.MaxGasAmount = cfg.MaxGasAmount
		rt.GasUnitPrice = cfg.GasUnitPrice
		rt.GasCurrencyCode = cfg.GasCurrency
		rt.ChainID = cfg.ChainID
	}
}

// Build assembles an unsigned transaction. It does not fetch or check the
// sequence number; a stale one is only detected by the node.
func Build(sender types.Address, sequenceNumber uint64, payload Payload, expiration time.Time, opts ...Option) (*RawTransaction, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}
	if err := checkPayload(payload); err != nil {
		return nil, err
	}
	if sender.IsZero() {
		return nil, ErrZeroSender
	}
	if expiration.Unix() < 0 {
		return nil, ErrExpiration
	}

	rt := &RawTransaction{
		Sender:                  sender,
		SequenceNumber:          sequenceNumber,
		Payload:                 payload,
		MaxGasAmount:            DefaultMaxGasAmount,
		GasUnitPrice:            DefaultGasUnitPrice,
		GasCurrencyCode:         DefaultGasCurrency,
		ExpirationTimestampSecs: uint64(expiration.Unix()),
		ChainID:                 DefaultChainID,
	}
	for _, opt := range opts {
		opt(rt)
	}

	if rt.MaxGasAmount == 0 {
		return nil, ErrZeroMaxGas
	}
	if rt.GasCurrencyCode == "" {
		return nil, ErrNoCurrency
	}
	if _, err := rt.MaxFee(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeeOverflow, err)
	}
	return rt, nil
}
