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
	"errors"
	"fmt"

	"github.com/probeum/go-arch/common"
)

// Tags of the system program instructions.
const (
	SystemCreateAccount byte = iota
	SystemExtendBytes
	SystemAssign
)

var ErrUnknownSystemInstruction = errors.New("unknown system instruction")

// SystemInstruction is a decoded system program call. Exactly one payload
// field is meaningful, selected by Tag.
type SystemInstruction struct {
	Tag   byte
	Utxo  common.UtxoMeta // CreateAccount
	Bytes []byte          // ExtendBytes
	Owner common.Pubkey   // Assign
}

// Serialize encodes tag | payload.
func (s *SystemInstruction) Serialize() []byte {
	b := []byte{s.Tag}
	switch s.Tag {
	case SystemCreateAccount:
		b = append(b, s.Utxo[:]...)
	case SystemExtendBytes:
		b = append(b, s.Bytes...)
	case SystemAssign:
		b = append(b, s.Owner[:]...)
	}
	return b
}

// DecodeSystemInstruction parses system program instruction data.
func DecodeSystemInstruction(b []byte) (*SystemInstruction, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	s := &SystemInstruction{Tag: tag}
	switch tag {
	case SystemCreateAccount:
		raw, err := d.next(common.UtxoMetaLength)
		if err != nil {
			return nil, err
		}
		copy(s.Utxo[:], raw)
	case SystemExtendBytes:
		raw, _ := d.next(d.remaining())
		s.Bytes = common.CopyBytes(raw)
	case SystemAssign:
		if s.Owner, err = d.pubkey(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownSystemInstruction, tag)
	}
	return s, d.finish()
}

func systemInstruction(key common.Pubkey, s *SystemInstruction) *Instruction {
	return &Instruction{
		ProgramID: common.SystemProgram(),
		Accounts:  []AccountMeta{NewAccountMeta(key, true)},
		Data:      s.Serialize(),
	}
}

// NewCreateAccountInstruction binds a fresh account to utxo. The account signs.
func NewCreateAccountInstruction(utxo common.UtxoMeta, key common.Pubkey) *Instruction {
	return systemInstruction(key, &SystemInstruction{Tag: SystemCreateAccount, Utxo: utxo})
}

// NewExtendBytesInstruction appends data to an account owned by the system program.
func NewExtendBytesInstruction(key common.Pubkey, data []byte) *Instruction {
	return systemInstruction(key, &SystemInstruction{Tag: SystemExtendBytes, Bytes: common.CopyBytes(data)})
}

// NewAssignInstruction hands ownership of an account to another program.
func NewAssignInstruction(key, owner common.Pubkey) *Instruction {
	return systemInstruction(key, &SystemInstruction{Tag: SystemAssign, Owner: owner})
}
