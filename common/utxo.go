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

package common

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UtxoMeta references the Bitcoin output an account is anchored to. The first
// 32 bytes hold the txid in display order (hex of the bytes equals the usual
// txid string), the last 4 bytes the little-endian output index.
type UtxoMeta [UtxoMetaLength]byte

// NewUtxoMeta builds a UtxoMeta from a display-order txid and output index.
func NewUtxoMeta(txid [32]byte, vout uint32) UtxoMeta {
	var u UtxoMeta
	u.SetTxid(txid)
	u.SetVout(vout)
	return u
}

// BytesToUtxoMeta converts b to a UtxoMeta. b must be exactly UtxoMetaLength bytes.
func BytesToUtxoMeta(b []byte) (UtxoMeta, error) {
	var u UtxoMeta
	if len(b) != UtxoMetaLength {
		return u, fmt.Errorf("%w: utxo meta needs %d bytes, have %d", ErrInvalidLength, UtxoMetaLength, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// UtxoMetaFromOutPoint converts a btcd outpoint into a UtxoMeta.
func UtxoMetaFromOutPoint(op wire.OutPoint) UtxoMeta {
	return NewUtxoMeta(ReverseTxid(op.Hash), op.Index)
}

// Txid returns the display-order transaction id.
func (u UtxoMeta) Txid() (txid [32]byte) {
	copy(txid[:], u[:32])
	return txid
}

// Vout returns the output index.
func (u UtxoMeta) Vout() uint32 {
	return binary.LittleEndian.Uint32(u[32:])
}

// TxidBytes exposes the txid sub-range for in place rewriting.
func (u *UtxoMeta) TxidBytes() []byte { return u[:32] }

// VoutBytes exposes the vout sub-range for in place rewriting.
func (u *UtxoMeta) VoutBytes() []byte { return u[32:] }

// SetTxid overwrites the txid sub-range.
func (u *UtxoMeta) SetTxid(txid [32]byte) { copy(u[:32], txid[:]) }

// SetVout overwrites the vout sub-range.
func (u *UtxoMeta) SetVout(vout uint32) { binary.LittleEndian.PutUint32(u[32:], vout) }

// OutPoint converts the reference to a btcd outpoint.
func (u UtxoMeta) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: TxidToChainhash(u.Txid()), Index: u.Vout()}
}

// IsZero reports whether the reference is unset.
func (u UtxoMeta) IsZero() bool { return u == UtxoMeta{} }

// String renders the reference as txid:vout.
func (u UtxoMeta) String() string {
	return fmt.Sprintf("%x:%d", u[:32], u.Vout())
}

// MarshalText encodes the raw 36 bytes as unprefixed hex.
func (u UtxoMeta) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(u[:])), nil
}

// UnmarshalText decodes the raw 36 bytes from hex.
func (u *UtxoMeta) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedUnprefixedText("UtxoMeta", input, u[:])
}

// ReverseTxid converts an internal-order chainhash into display order.
func ReverseTxid(h chainhash.Hash) (txid [32]byte) {
	for i := 0; i < chainhash.HashSize; i++ {
		txid[i] = h[chainhash.HashSize-1-i]
	}
	return txid
}

// TxidToChainhash converts a display-order txid into btcd's internal order.
func TxidToChainhash(txid [32]byte) (h chainhash.Hash) {
	for i := 0; i < chainhash.HashSize; i++ {
		h[i] = txid[chainhash.HashSize-1-i]
	}
	return h
}
