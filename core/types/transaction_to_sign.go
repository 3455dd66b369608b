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

// MaxTransactionToSign bounds the encoded signing request a program may hand to the host.
const MaxTransactionToSign = 1024

var ErrTransactionToSignTooLarge = errors.New("transaction to sign exceeds size limit")

// InputToSign asks the host to sign input Index on behalf of Signer.
type InputToSign struct {
	Index  uint32        `json:"index"`
	Signer common.Pubkey `json:"signer"`
}

// TransactionToSign is a program's request to have a Bitcoin transaction
// completed and broadcast by the host.
type TransactionToSign struct {
	TxBytes      []byte        `json:"tx_bytes"`
	InputsToSign []InputToSign `json:"inputs_to_sign"`
}

// Serialize encodes u64 len | tx | u8 count | (u32 index | signer)...
func (t *TransactionToSign) Serialize() ([]byte, error) {
	if err := checkListLength("inputs to sign", len(t.InputsToSign)); err != nil {
		return nil, err
	}
	b := appendU64(nil, uint64(len(t.TxBytes)))
	b = append(b, t.TxBytes...)
	b = append(b, byte(len(t.InputsToSign)))
	for _, in := range t.InputsToSign {
		b = appendU32(b, in.Index)
		b = append(b, in.Signer[:]...)
	}
	if len(b) > MaxTransactionToSign {
		return nil, fmt.Errorf("%w: %d > %d", ErrTransactionToSignTooLarge, len(b), MaxTransactionToSign)
	}
	return b, nil
}

// DecodeTransactionToSign is the inverse of TransactionToSign.Serialize.
func DecodeTransactionToSign(b []byte) (*TransactionToSign, error) {
	if len(b) > MaxTransactionToSign {
		return nil, ErrTransactionToSignTooLarge
	}
	d := newDecoder(b)
	tx, err := d.bytes()
	if err != nil {
		return nil, err
	}
	n, err := d.u8()
	if err != nil {
		return nil, err
	}
	t := &TransactionToSign{TxBytes: tx, InputsToSign: make([]InputToSign, n)}
	for i := range t.InputsToSign {
		if t.InputsToSign[i].Index, err = d.u32(); err != nil {
			return nil, err
		}
		if t.InputsToSign[i].Signer, err = d.pubkey(); err != nil {
			return nil, err
		}
	}
	return t, d.finish()
}
