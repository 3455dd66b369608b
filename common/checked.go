// Copyright 2024 The go-probeum Authors
// This file is part of the go-probeum library.
//
// The go-probeum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-probeum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-probeum library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"errors"

	"github.com/ethereum/go-ethereum/common/math"
)

// ErrArithmeticOverflow is returned by the checked helpers when the result
// does not fit in 64 bits.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// CheckedAdd returns x+y or ErrArithmeticOverflow.
func CheckedAdd(x, y uint64) (uint64, error) {
	if v, overflow := math.SafeAdd(x, y); !overflow {
		return v, nil
	}
	return 0, ErrArithmeticOverflow
}

// CheckedSub returns x-y or ErrArithmeticOverflow on underflow.
func CheckedSub(x, y uint64) (uint64, error) {
	if v, overflow := math.SafeSub(x, y); !overflow {
		return v, nil
	}
	return 0, ErrArithmeticOverflow
}

// CheckedMul returns x*y or ErrArithmeticOverflow.
func CheckedMul(x, y uint64) (uint64, error) {
	if v, overflow := math.SafeMul(x, y); !overflow {
		return v, nil
	}
	return 0, ErrArithmeticOverflow
}

// SaturatingSub returns x-y, clamped at zero.
func SaturatingSub(x, y uint64) uint64 {
	if y > x {
		return 0
	}
	return x - y
}
