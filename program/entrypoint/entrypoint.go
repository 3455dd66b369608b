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

// Package entrypoint connects a program's handler to the host: it decodes
// the input buffer, runs the handler and turns the outcome into a status code.
package entrypoint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
	"github.com/probeum/go-arch/program/alloc"
	"github.com/probeum/go-arch/program/invoke"
)

// Context is what one invocation gets from the host besides its input.
type Context struct {
	Heap *alloc.BumpAllocator
	Sys  invoke.Syscalls
}

// Invoke calls another program, see invoke.Invoke.
func (ctx *Context) Invoke(ix *types.Instruction, accounts []*account.AccountInfo) error {
	return invoke.Invoke(ctx.Sys, ix, accounts)
}

// Log emits a formatted diagnostic through the host.
func (ctx *Context) Log(format string, args ...interface{}) {
	invoke.Log(ctx.Sys, format, args...)
}

// Handler is a program's single instruction processor.
type Handler func(ctx *Context, programID common.Pubkey, accounts []*account.AccountInfo, data []byte) error

// Entrypoint runs h over input and returns program.Success or the non-zero
// code of the failure. A panicking handler is reported as ErrProgramFailed.
func Entrypoint(input []byte, ctx *Context, h Handler) (code uint64) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("program panicked: %v", r)
			ctx.Sys.Log(msg)
			log.Debug("Program panicked", "err", r)
			code = program.ErrProgramFailed.Code()
		}
	}()
	programID, accounts, data, err := Deserialize(input)
	if err != nil {
		ctx.Sys.Log(err.Error())
		log.Debug("Rejected program input", "size", len(input), "err", err)
		return program.ErrorCode(err)
	}
	if err := h(ctx, programID, accounts, data); err != nil {
		ctx.Sys.Log(err.Error())
		log.Debug("Program failed", "program", programID, "err", err)
		return program.ErrorCode(err)
	}
	return program.Success
}
