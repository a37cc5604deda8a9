package tx

import (
	"fmt"
	"math"
)

// MaxFee returns the most the sender can be charged for the transaction,
// MaxGasAmount * GasUnitPrice. Returns an error on overflow.
func (rt *RawTransaction) MaxFee() (uint64, error) {
	if rt.GasUnitPrice != 0 && rt.MaxGasAmount > math.MaxUint64/rt.GasUnitPrice {
		return 0, fmt.Errorf("max fee overflows: %d * %d", rt.MaxGasAmount, rt.GasUnitPrice)
	}
	return rt.MaxGasAmount * rt.GasUnitPrice, nil
}
