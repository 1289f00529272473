// Package units converts major-unit APT amounts into octas, the minor unit
// used by on-chain transfer instructions.
package units

import (
	"fmt"
	"math"

	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// OctasPerAPT is the fixed minor-unit scale (1 APT = 10^8 octas).
const OctasPerAPT = 100_000_000

var octasScale = decimal.NewFromInt(OctasPerAPT)

// ToOctas converts a non-negative major-unit amount into octas, truncating
// toward zero. Truncation may undercharge by a fraction of an octa; it must
// never round up, since challenge amounts are server-dictated.
func ToOctas(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, apperrors.NewInvalidAmount(fmt.Sprintf("amount %s is negative", amount))
	}
	octas := amount.Mul(octasScale).Floor().BigInt()
	if !octas.IsUint64() {
		return 0, apperrors.NewInvalidAmount(fmt.Sprintf("amount %s overflows octas", amount))
	}
	return octas.Uint64(), nil
}

// FromFloat converts a raw float amount, rejecting the non-finite values a
// loosely parsed JSON number can smuggle in.
func FromFloat(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperrors.NewInvalidAmount("amount is not a finite number")
	}
	return ToOctas(decimal.NewFromFloat(amount))
}
