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

// Package counter is a small program that keeps a named counter in a single
// account and can anchor every update on Bitcoin.
package counter

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
	"github.com/probeum/go-arch/program/entrypoint"
	"github.com/probeum/go-arch/program/invoke"
)

// Instruction tags.
const (
	Initialize byte = iota
	Increment
	IncrementAndAnchor
)

const valueSize = 4

var (
	ErrAccountCount = program.Custom(501)
	ErrInvalidData  = program.Custom(502)
)

// Process is the counter's entrypoint.Handler.
func Process(ctx *entrypoint.Context, programID common.Pubkey, accounts []*account.AccountInfo, data []byte) error {
	if len(accounts) != 1 {
		ctx.Log("expected 1 account, got %d", len(accounts))
		return ErrAccountCount
	}
	if len(data) < 2 {
		return ErrInvalidData
	}
	acct, err := account.NewIter(accounts).Next()
	if err != nil {
		return err
	}
	if !acct.IsWritable {
		return fmt.Errorf("%w: %s", program.ErrInvalidArgument, acct.Key())
	}
	if !acct.IsOwnedBy(programID) {
		return fmt.Errorf("%w: %s", program.ErrIncorrectProgramID, acct.Key())
	}
	tag, name := data[0], string(data[1:])

	switch tag {
	case Initialize:
		if !acct.DataIsEmpty() {
			return program.ErrAccountAlreadyInitialized
		}
		return write(ctx, acct, 0, fmt.Sprintf("%s's counter initialized", name))
	case Increment, IncrementAndAnchor:
		value, err := increment(ctx, acct, name)
		if err != nil {
			return err
		}
		var ret [valueSize]byte
		binary.LittleEndian.PutUint32(ret[:], value)
		if err := invoke.SetReturnData(ctx.Sys, ret[:]); err != nil {
			return err
		}
		if tag == IncrementAndAnchor {
			return anchor(ctx, accounts)
		}
		return nil
	}
	ctx.Log("unknown instruction %d", tag)
	return ErrInvalidData
}

func increment(ctx *entrypoint.Context, acct *account.AccountInfo, name string) (uint32, error) {
	if acct.DataLen() < valueSize {
		return 0, program.ErrUninitializedAccount
	}
	buf, release, err := acct.TryBorrowData()
	if err != nil {
		return 0, err
	}
	current := binary.LittleEndian.Uint32(buf)
	release()

	next, err := common.CheckedAdd(uint64(current), 1)
	if err != nil || next > uint64(^uint32(0)) {
		return 0, program.ErrArithmeticOverflow
	}
	value := uint32(next)
	ctx.Log("counter %s: %d -> %d", acct.Key().TerminalString(), current, value)
	return value, write(ctx, acct, value, fmt.Sprintf("%s's counter updated to %d!", name, value))
}

// write stores value followed by msg, resizing the account to fit. The
// message is staged on the heap before it is copied into the account.
func write(ctx *entrypoint.Context, acct *account.AccountInfo, value uint32, msg string) error {
	staged, err := ctx.Heap.AllocBytes(uint64(len(msg)), 1)
	if err != nil {
		return err
	}
	copy(staged, msg)

	if err := acct.Realloc(valueSize+len(staged), true); err != nil {
		return err
	}
	data, release, err := acct.TryBorrowMutData()
	if err != nil {
		return err
	}
	defer release()
	binary.LittleEndian.PutUint32(data, value)
	copy(data[valueSize:], staged)
	return nil
}

func anchor(ctx *entrypoint.Context, accounts []*account.AccountInfo) error {
	tx, err := invoke.StateTransitionTx(ctx.Sys, accounts)
	if err != nil {
		return err
	}
	var inputs []types.InputToSign
	for i, a := range invoke.AnchoredAccounts(accounts) {
		inputs = append(inputs, types.InputToSign{Index: uint32(i), Signer: a.Key()})
	}
	return invoke.SetTransactionToSign(ctx.Sys, accounts, tx, inputs)
}

// Decode splits counter account data into its value and message.
func Decode(data []byte) (uint32, string, error) {
	if len(data) < valueSize {
		return 0, "", fmt.Errorf("counter data too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint32(data), string(data[valueSize:]), nil
}

// Name returns the counter owner's name recorded in a message.
func Name(msg string) string {
	if i := strings.Index(msg, "'s counter"); i >= 0 {
		return msg[:i]
	}
	return ""
}

// NewInstruction builds a counter instruction for key.
func NewInstruction(programID, key common.Pubkey, tag byte, name string) *types.Instruction {
	return &types.Instruction{
		ProgramID: programID,
		Accounts:  []types.AccountMeta{types.NewAccountMeta(key, true)},
		Data:      append([]byte{tag}, name...),
	}
}
