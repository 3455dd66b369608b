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

package program

import (
	"errors"
	"fmt"
	"testing"

	"github.com/probeum/go-arch/common"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	tests := []error{
		ErrInvalidArgument,
		ErrAccountBorrowFailed,
		ErrInvalidRealloc,
		ErrNotEnoughAccountKeys,
		Custom(0),
		Custom(1),
		Custom(0xffffffff),
	}
	for _, want := range tests {
		code := ErrorCode(want)
		if code == Success {
			t.Fatalf("%v: maps to success", want)
		}
		if have := ErrorFromCode(code); have != want {
			t.Errorf("code %#x: have %v, want %v", code, have, want)
		}
	}
}

func TestErrorCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("counter: %w", ErrInvalidRealloc)
	if ErrorCode(wrapped) != ErrInvalidRealloc.Code() {
		t.Fatal("wrapped program error lost its code")
	}
	if ErrorCode(fmt.Errorf("add: %w", common.ErrArithmeticOverflow)) != ErrArithmeticOverflow.Code() {
		t.Fatal("overflow not mapped")
	}
	if ErrorCode(errors.New("boom")) != ErrProgramFailed.Code() {
		t.Fatal("plain error not mapped to ErrProgramFailed")
	}
	if ErrorCode(nil) != Success || ErrorFromCode(Success) != nil {
		t.Fatal("success mapping broken")
	}
}

func TestUnknownBuiltin(t *testing.T) {
	err := ErrorFromCode(builtin(999))
	var perr *ProgramError
	if !errors.As(err, &perr) || perr.Code() != builtin(999) {
		t.Fatalf("have %v", err)
	}
}
