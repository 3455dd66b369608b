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
	"fmt"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/bitcoin"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
)

// applySystemInstruction executes an instruction of the native system program.
func (p *Processor) applySystemInstruction(tc *txContext, ix *types.Instruction) error {
	si, err := types.DecodeSystemInstruction(ix.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", program.ErrInvalidInstructionData, err)
	}
	if len(ix.Accounts) == 0 {
		return program.ErrNotEnoughAccountKeys
	}
	meta := ix.Accounts[0]
	if !meta.IsSigner || !tc.signers.Contains(meta.Pubkey) {
		return fmt.Errorf("%w: %s", program.ErrMissingRequiredSignature, meta.Pubkey)
	}
	if !meta.IsWritable {
		return fmt.Errorf("%w: %s is read-only", program.ErrReadonlyDataModified, meta.Pubkey)
	}
	switch si.Tag {
	case types.SystemCreateAccount:
		return p.transitionCreateAccount(tc, meta.Pubkey, si.Utxo)
	case types.SystemExtendBytes:
		return p.transitionExtendBytes(meta.Pubkey, si.Bytes)
	case types.SystemAssign:
		return p.transitionAssign(meta.Pubkey, si.Owner)
	}
	return fmt.Errorf("%w: tag %d", program.ErrInvalidInstructionData, si.Tag)
}

// transitionCreateAccount binds a new account to an output locked by the
// account's script.
func (p *Processor) transitionCreateAccount(tc *txContext, key common.Pubkey, utxo common.UtxoMeta) error {
	if p.state.Exist(key) {
		return fmt.Errorf("%w: %s", program.ErrAccountAlreadyInitialized, key)
	}
	out, err := p.prevOutput(tc, utxo.OutPoint())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", program.ErrInvalidUtxo, utxo, err)
	}
	if !bitcoin.OwnsScript(p.networkXOnly, key, out.PkScript) {
		return fmt.Errorf("%w: %s is not locked to %s", program.ErrInvalidUtxo, utxo, key)
	}
	p.log.Debug("Created account", "key", key, "utxo", utxo)
	return p.state.CreateAccount(key, common.SystemProgram(), utxo)
}

func (p *Processor) systemOwned(key common.Pubkey) error {
	acct := p.state.GetAccount(key)
	switch {
	case acct == nil:
		return fmt.Errorf("%w: %s", program.ErrUninitializedAccount, key)
	case !acct.Owner.IsSystemProgram():
		return fmt.Errorf("%w: %s owned by %s", program.ErrInvalidAccountOwner, key, acct.Owner)
	case acct.Executable:
		return fmt.Errorf("%w: %s is executable", program.ErrReadonlyDataModified, key)
	}
	return nil
}

// transitionExtendBytes appends data to an account the system program owns.
func (p *Processor) transitionExtendBytes(key common.Pubkey, data []byte) error {
	if err := p.systemOwned(key); err != nil {
		return err
	}
	cur := p.state.GetAccount(key).Data
	size, err := common.CheckedAdd(uint64(len(cur)), uint64(len(data)))
	if err != nil {
		return err
	}
	if size > program.MaxPermittedDataLength {
		return fmt.Errorf("%w: %d > %d", program.ErrInvalidRealloc, size, program.MaxPermittedDataLength)
	}
	return p.state.SetData(key, append(cur, data...))
}

// transitionAssign hands a system-owned account to another program.
func (p *Processor) transitionAssign(key, owner common.Pubkey) error {
	if err := p.systemOwned(key); err != nil {
		return err
	}
	return p.state.SetOwner(key, owner)
}
