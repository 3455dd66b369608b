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

// Message is the signed body of a runtime transaction.
type Message struct {
	Signers      []common.Pubkey `json:"signers"`
	Instructions []*Instruction  `json:"instructions"`
}

// Serialize encodes the message as
// u8 count | signers | u8 count | instructions.
func (m *Message) Serialize() ([]byte, error) {
	return m.appendTo(nil)
}

func (m *Message) appendTo(b []byte) ([]byte, error) {
	if err := checkListLength("signers", len(m.Signers)); err != nil {
		return nil, err
	}
	if err := checkListLength("instructions", len(m.Instructions)); err != nil {
		return nil, err
	}
	b = append(b, byte(len(m.Signers)))
	for _, s := range m.Signers {
		b = append(b, s[:]...)
	}
	b = append(b, byte(len(m.Instructions)))
	var err error
	for _, ix := range m.Instructions {
		if b, err = ix.appendTo(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Hash returns the double hash of the encoding. Signers sign this value.
func (m *Message) Hash() (common.Hash, error) {
	enc, err := m.Serialize()
	if err != nil {
		return common.Hash{}, err
	}
	return DoubleHash(enc), nil
}

// HasSigner reports whether key is listed as a signer.
func (m *Message) HasSigner(key common.Pubkey) bool {
	for _, s := range m.Signers {
		if s == key {
			return true
		}
	}
	return false
}

// DecodeMessage is the inverse of Message.Serialize.
func DecodeMessage(b []byte) (*Message, error) {
	d := newDecoder(b)
	m, err := decodeMessage(d)
	if err != nil {
		return nil, err
	}
	return m, d.finish()
}

func decodeMessage(d *decoder) (*Message, error) {
	n, err := d.u8()
	if err != nil {
		return nil, fmt.Errorf("message signer count: %w", err)
	}
	m := &Message{Signers: make([]common.Pubkey, n)}
	for i := range m.Signers {
		if m.Signers[i], err = d.pubkey(); err != nil {
			return nil, fmt.Errorf("message signer %d: %w", i, err)
		}
	}
	if n, err = d.u8(); err != nil {
		return nil, fmt.Errorf("message instruction count: %w", err)
	}
	m.Instructions = make([]*Instruction, n)
	for i := range m.Instructions {
		if m.Instructions[i], err = decodeInstruction(d); err != nil {
			return nil, fmt.Errorf("message instruction %d: %w", i, err)
		}
	}
	return m, nil
}
