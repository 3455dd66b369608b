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

	"github.com/probeum/go-arch/common"
)

// Success is the status code of a successful invocation.
const Success uint64 = 0

// Builtin error codes live in the upper 32 bits so that any non-zero u32 is
// free for program defined errors.
const builtinShift = 32

func builtin(n uint64) uint64 { return n << builtinShift }

// ProgramError is an error with a stable status code crossing the host boundary.
type ProgramError struct {
	code uint64
	msg  string
}

func newError(n uint64, msg string) *ProgramError {
	e := &ProgramError{code: builtin(n), msg: msg}
	builtinErrors[e.code] = e
	return e
}

func (e *ProgramError) Error() string { return e.msg }

// Code returns the status code reported to the host.
func (e *ProgramError) Code() uint64 { return e.code }

var builtinErrors = make(map[uint64]*ProgramError)

var (
	ErrInvalidArgument             = newError(2, "invalid program argument")
	ErrInvalidInstructionData      = newError(3, "invalid instruction data")
	ErrInvalidAccountData          = newError(4, "invalid account data for instruction")
	ErrAccountDataTooSmall         = newError(5, "account data too small for instruction")
	ErrIncorrectProgramID          = newError(7, "incorrect program id for instruction")
	ErrMissingRequiredSignature    = newError(8, "missing required signature for instruction")
	ErrAccountAlreadyInitialized   = newError(9, "instruction requires an uninitialized account")
	ErrUninitializedAccount        = newError(10, "instruction requires an initialized account")
	ErrNotEnoughAccountKeys        = newError(11, "not enough account keys given to the instruction")
	ErrAccountBorrowFailed         = newError(12, "failed to borrow a reference to account data, already borrowed")
	ErrIllegalOwner                = newError(18, "provided owner is not allowed")
	ErrInvalidRealloc              = newError(20, "account data reallocation was invalid")
	ErrInvalidAccountOwner         = newError(23, "invalid account owner")
	ErrArithmeticOverflow          = newError(24, "program arithmetic overflowed")
	ErrMaxReturnDataExceeded       = newError(27, "return data exceeds maximum size")
	ErrTransactionToSignTooLarge   = newError(28, "transaction to sign exceeds maximum size")
	ErrMalformedInput              = newError(29, "malformed entrypoint input")
	ErrExternalAccountDataModified = newError(30, "instruction modified data of an account it does not own")
	ErrReadonlyDataModified        = newError(31, "instruction modified data of a read-only account")
	ErrUnsupportedProgramID        = newError(32, "unsupported program id")
	ErrOutOfMemory                 = newError(33, "heap allocation failed")
	ErrPrivilegeEscalation         = newError(34, "cross-program invocation with unauthorized signer or writable account")
	ErrInvalidUtxo                 = newError(35, "utxo is not owned by the account")
	ErrProgramFailed               = newError(36, "program failed")
)

// CustomError is a program defined error code.
type CustomError uint32

// Custom returns the program defined error n.
func Custom(n uint32) error { return CustomError(n) }

func (c CustomError) Error() string { return fmt.Sprintf("custom program error: %#x", uint32(c)) }

// Code returns the status code reported to the host. Custom(0) uses a
// reserved builtin code since zero means success.
func (c CustomError) Code() uint64 {
	if c == 0 {
		return builtin(1)
	}
	return uint64(c)
}

// ErrorCode maps err to the status code reported to the host. Errors that
// carry no code of their own report ErrProgramFailed.
func ErrorCode(err error) uint64 {
	if err == nil {
		return Success
	}
	var (
		perr *ProgramError
		cerr CustomError
	)
	switch {
	case errors.As(err, &perr):
		return perr.Code()
	case errors.As(err, &cerr):
		return cerr.Code()
	case errors.Is(err, common.ErrArithmeticOverflow):
		return ErrArithmeticOverflow.Code()
	}
	return ErrProgramFailed.Code()
}

// ErrorFromCode is the inverse of ErrorCode. Success maps to nil.
func ErrorFromCode(code uint64) error {
	switch {
	case code == Success:
		return nil
	case code == builtin(1):
		return CustomError(0)
	case code < builtin(1):
		return CustomError(uint32(code))
	}
	if e, ok := builtinErrors[code]; ok {
		return e
	}
	return &ProgramError{code: code, msg: fmt.Sprintf("unknown program error %#x", code)}
}
