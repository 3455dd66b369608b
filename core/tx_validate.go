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

package core

import (
	"errors"
	"fmt"

	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
)

var ErrEmptyMessage = errors.New("runtime transaction has no instructions")

// validateTx runs the checks a transaction must pass before it is recorded:
// the stateless sanitize rules, every signature, and a known program behind
// each instruction.
func (p *Processor) validateTx(rtx *types.RuntimeTransaction) error {
	if err := rtx.Sanitize(); err != nil {
		return err
	}
	if len(rtx.Message.Instructions) == 0 {
		return ErrEmptyMessage
	}
	if err := rtx.VerifySignatures(); err != nil {
		return err
	}
	for i, ix := range rtx.Message.Instructions {
		if err := p.validateInstruction(ix); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

func (p *Processor) validateInstruction(ix *types.Instruction) error {
	if ix.ProgramID.IsSystemProgram() {
		return nil
	}
	if _, ok := p.programs[ix.ProgramID]; !ok {
		return fmt.Errorf("%w: %s", program.ErrUnsupportedProgramID, ix.ProgramID)
	}
	if acct := p.state.GetAccount(ix.ProgramID); acct == nil || !acct.Executable {
		return fmt.Errorf("%w: %s is not executable", program.ErrIncorrectProgramID, ix.ProgramID)
	}
	return nil
}
