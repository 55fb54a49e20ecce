// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package numbers

import (
	"math/big"
)

// Zero defines 0 number.
const Zero = 0

// OneBigInt defies 1 as *big.Int type.
var OneBigInt = big.NewInt(1)

// IsNegative returns true if the number is less than zero.
func IsNegative(num *big.Int) bool {
	return num.Sign() < Zero
}

// IsPositive returns true if the number is grater than zero.
func IsPositive(num *big.Int) bool {
	return num.Sign() > Zero
}

// IsGreater returns true is a > b.
func IsGreater(a, b *big.Int) bool {
	return a.Cmp(b) > Zero
}

// IsLess returns true is a < b.
func IsLess(a, b *big.Int) bool {
	return a.Cmp(b) < Zero
}

// Max returns the largest value from provided.
func Max(a *big.Int, b ...*big.Int) *big.Int {
	maxValue := a
	for _, el := range b {
		if IsGreater(el, maxValue) {
			maxValue = el
		}
	}

	return maxValue
}

// Sum returns new number equal to the sum of provided.
func Sum(values ...*big.Int) *big.Int {
	sum := new(big.Int)
	for _, value := range values {
		sum.Add(sum, value)
	}

	return sum
}

// CeilDiv returns ceil(a / b) for non-negative a and positive b.
func CeilDiv(a, b *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(a, b, new(big.Int))
	if rem.Sign() != Zero {
		quo.Add(quo, OneBigInt)
	}

	return quo
}
