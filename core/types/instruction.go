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

package types

import (
	"fmt"

	"github.com/probeum/go-arch/common"
)

// AccountMetaLength is the encoded size of an AccountMeta.
const AccountMetaLength = common.PubkeyLength + 2

// AccountMeta names an account an instruction touches and the access it needs.
type AccountMeta struct {
	Pubkey     common.Pubkey `json:"pubkey"`
	IsSigner   bool          `json:"is_signer"`
	IsWritable bool          `json:"is_writable"`
}

// NewAccountMeta returns a writable meta.
func NewAccountMeta(key common.Pubkey, isSigner bool) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: isSigner, IsWritable: true}
}

// NewReadonlyAccountMeta returns a read-only meta.
func NewReadonlyAccountMeta(key common.Pubkey, isSigner bool) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: isSigner}
}

// Serialize returns the 34 byte encoding.
func (m AccountMeta) Serialize() []byte {
	return m.appendTo(make([]byte, 0, AccountMetaLength))
}

func (m AccountMeta) appendTo(b []byte) []byte {
	b = append(b, m.Pubkey[:]...)
	b = appendBool(b, m.IsSigner)
	return appendBool(b, m.IsWritable)
}

// DecodeAccountMeta is the inverse of AccountMeta.Serialize.
func DecodeAccountMeta(b []byte) (AccountMeta, error) {
	d := newDecoder(b)
	m, err := decodeAccountMeta(d)
	if err != nil {
		return AccountMeta{}, err
	}
	return m, d.finish()
}

func decodeAccountMeta(d *decoder) (m AccountMeta, err error) {
	if m.Pubkey, err = d.pubkey(); err != nil {
		return m, err
	}
	if m.IsSigner, err = d.bool(); err != nil {
		return m, err
	}
	m.IsWritable, err = d.bool()
	return m, err
}

// Instruction is a single program call: the program to run, the accounts it
// may touch and opaque input bytes.
type Instruction struct {
	ProgramID common.Pubkey `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// Serialize encodes the instruction as
// program_id | u8 count | metas | u64 len | data.
func (ix *Instruction) Serialize() ([]byte, error) {
	return ix.appendTo(make([]byte, 0, ix.encodedLen()))
}

func (ix *Instruction) encodedLen() int {
	return common.PubkeyLength + 1 + len(ix.Accounts)*AccountMetaLength + 8 + len(ix.Data)
}

func (ix *Instruction) appendTo(b []byte) ([]byte, error) {
	if err := checkListLength("instruction accounts", len(ix.Accounts)); err != nil {
		return nil, err
	}
	b = append(b, ix.ProgramID[:]...)
	b = append(b, byte(len(ix.Accounts)))
	for _, m := range ix.Accounts {
		b = m.appendTo(b)
	}
	b = appendU64(b, uint64(len(ix.Data)))
	return append(b, ix.Data...), nil
}

// Hash returns the double hash of the encoding. It identifies the
// instruction in transaction outcomes.
func (ix *Instruction) Hash() (common.Hash, error) {
	enc, err := ix.Serialize()
	if err != nil {
		return common.Hash{}, err
	}
	return DoubleHash(enc), nil
}

// DecodeInstruction is the inverse of Instruction.Serialize.
func DecodeInstruction(b []byte) (*Instruction, error) {
	d := newDecoder(b)
	ix, err := decodeInstruction(d)
	if err != nil {
		return nil, err
	}
	return ix, d.finish()
}

func decodeInstruction(d *decoder) (*Instruction, error) {
	var (
		ix  = new(Instruction)
		err error
	)
	if ix.ProgramID, err = d.pubkey(); err != nil {
		return nil, fmt.Errorf("instruction program id: %w", err)
	}
	n, err := d.u8()
	if err != nil {
		return nil, fmt.Errorf("instruction account count: %w", err)
	}
	ix.Accounts = make([]AccountMeta, n)
	for i := range ix.Accounts {
		if ix.Accounts[i], err = decodeAccountMeta(d); err != nil {
			return nil, fmt.Errorf("instruction account %d: %w", i, err)
		}
	}
	if ix.Data, err = d.bytes(); err != nil {
		return nil, fmt.Errorf("instruction data: %w", err)
	}
	return ix, nil
}
