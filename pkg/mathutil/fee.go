package mathutil

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TenThousands is the number of basis points in one unit.
var TenThousands = big.NewInt(10000)

// FeeBPS returns the fee in basis points a relayer charges to withdraw amount
// when the transaction costs gasUnits at gasPrice, with the native asset
// valued at num/den units of the withdrawn asset:
//
//	baseFeeBPS + den * 10000 * gasPrice * gasUnits / amount / num
func FeeBPS(
	baseFeeBPS, amount, gasPrice, gasUnits, num, den *big.Int,
) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if num == nil || num.Sign() <= 0 || den == nil || den.Sign() <= 0 {
		return nil, fmt.Errorf("invalid rate")
	}

	nativeCost := new(big.Int).Mul(gasPrice, gasUnits)
	fee := new(big.Int).Mul(den, TenThousands)
	fee.Mul(fee, nativeCost)
	fee.Quo(fee, amount)
	fee.Quo(fee, num)
	return fee.Add(fee, baseFeeBPS), nil
}

// LessFee calculates an amount with a subtracted fee given an amount and a
// fee expressed in basis points (ie. 0.25% = 25).
func LessFee(amount, feeAsBasisPoint *big.Int) (net, fee *big.Int) {
	fee = new(big.Int).Mul(amount, feeAsBasisPoint)
	fee.Quo(fee, TenThousands)
	net = new(big.Int).Sub(amount, fee)
	return
}

// BPSToPercentage converts basis points to a percentage (ie. 25 = 0.25).
func BPSToPercentage(bps *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(bps, -2)
}

// ToUnits expresses an amount of the smallest denomination of an asset with
// the given number of decimals in whole units.
func ToUnits(amount *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -decimals)
}
