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
	"sort"

	"github.com/probeum/go-arch/common"
)

// Status is the lifecycle stage of a submitted runtime transaction.
type Status uint8

const (
	StatusProcessing Status = iota
	StatusProcessed
	StatusFailed
)

// ErrUnknownStatus is returned when decoding an unknown status byte.
var ErrUnknownStatus = errors.New("unknown transaction status")

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusProcessed:
		return "processed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusProcessed || s == StatusFailed }

// ProcessedTransaction is the host's record of a runtime transaction's fate.
// BitcoinTxids maps an instruction hash to the anchoring Bitcoin transactions
// it caused, in display order.
type ProcessedTransaction struct {
	RuntimeTransaction *RuntimeTransaction           `json:"runtime_transaction"`
	Status             Status                        `json:"status"`
	FailureReason      string                        `json:"failure_reason,omitempty"`
	BitcoinTxids       map[common.Hash][]common.Hash `json:"bitcoin_txids"`
}

// NewProcessedTransaction starts a record in the Processing state.
func NewProcessedTransaction(tx *RuntimeTransaction) *ProcessedTransaction {
	return &ProcessedTransaction{
		RuntimeTransaction: tx,
		Status:             StatusProcessing,
		BitcoinTxids:       make(map[common.Hash][]common.Hash),
	}
}

// Txid is the runtime transaction id.
func (p *ProcessedTransaction) Txid() (common.Hash, error) {
	return p.RuntimeTransaction.Txid()
}

// AllBitcoinTxids flattens the anchor mapping in instruction hash order.
func (p *ProcessedTransaction) AllBitcoinTxids() []common.Hash {
	var out []common.Hash
	for _, k := range p.sortedKeys() {
		out = append(out, p.BitcoinTxids[k]...)
	}
	return out
}

func (p *ProcessedTransaction) sortedKeys() []common.Hash {
	keys := make([]common.Hash, 0, len(p.BitcoinTxids))
	for k := range p.BitcoinTxids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Copy returns a deep copy. The runtime transaction is shared.
func (p *ProcessedTransaction) Copy() *ProcessedTransaction {
	cpy := *p
	cpy.BitcoinTxids = make(map[common.Hash][]common.Hash, len(p.BitcoinTxids))
	for k, v := range p.BitcoinTxids {
		cpy.BitcoinTxids[k] = append([]common.Hash(nil), v...)
	}
	return &cpy
}

// Serialize encodes the record as
// u8 status | u64 len | tx | u64 count | (ix hash | u8 n | txids)... | [u64 len | reason].
// Anchor entries are ordered by instruction hash.
func (p *ProcessedTransaction) Serialize() ([]byte, error) {
	enc, err := p.RuntimeTransaction.Serialize()
	if err != nil {
		return nil, err
	}
	b := []byte{byte(p.Status)}
	b = appendU64(b, uint64(len(enc)))
	b = append(b, enc...)
	b = appendU64(b, uint64(len(p.BitcoinTxids)))
	for _, k := range p.sortedKeys() {
		txids := p.BitcoinTxids[k]
		if err := checkListLength("bitcoin txids", len(txids)); err != nil {
			return nil, err
		}
		b = append(b, k[:]...)
		b = append(b, byte(len(txids)))
		for _, id := range txids {
			b = append(b, id[:]...)
		}
	}
	if p.Status == StatusFailed {
		b = appendU64(b, uint64(len(p.FailureReason)))
		b = append(b, p.FailureReason...)
	}
	return b, nil
}

// DecodeProcessedTransaction is the inverse of ProcessedTransaction.Serialize.
func DecodeProcessedTransaction(b []byte) (*ProcessedTransaction, error) {
	d := newDecoder(b)
	status, err := d.u8()
	if err != nil {
		return nil, err
	}
	if Status(status) > StatusFailed {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, status)
	}
	enc, err := d.bytes()
	if err != nil {
		return nil, fmt.Errorf("runtime transaction: %w", err)
	}
	tx, err := DecodeRuntimeTransaction(enc)
	if err != nil {
		return nil, err
	}
	p := NewProcessedTransaction(tx)
	p.Status = Status(status)

	entries, err := d.u64()
	if err != nil {
		return nil, err
	}
	if entries > uint64(d.remaining()/(common.HashLength+1)) {
		return nil, fmt.Errorf("%w: %d anchor entries", ErrTruncated, entries)
	}
	for i := uint64(0); i < entries; i++ {
		key, err := d.hash()
		if err != nil {
			return nil, err
		}
		n, err := d.u8()
		if err != nil {
			return nil, err
		}
		txids := make([]common.Hash, n)
		for j := range txids {
			if txids[j], err = d.hash(); err != nil {
				return nil, err
			}
		}
		p.BitcoinTxids[key] = txids
	}
	if p.Status == StatusFailed {
		reason, err := d.bytes()
		if err != nil {
			return nil, fmt.Errorf("failure reason: %w", err)
		}
		p.FailureReason = string(reason)
	}
	return p, d.finish()
}
