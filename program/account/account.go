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

// Package account implements the program-side view of an account living in
// the flat input buffer handed over by the host.
package account

import (
	"encoding/binary"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/program"
)

// Layout holds the absolute buffer offsets of a non-duplicate account slot.
// The original data length sits right after the key and the current data
// length right before the data.
type Layout struct {
	Key   int
	Data  int
	Owner int
	Utxo  int
	End   int
}

// LayoutAt computes the slot layout for an account whose key starts at
// keyOff and whose data is dataLen bytes long at entry.
func LayoutAt(keyOff, dataLen int) Layout {
	l := Layout{Key: keyOff, Data: keyOff + common.PubkeyLength + 16}
	owner := l.Data + dataLen + program.MaxPermittedDataIncrease
	owner += (program.BPFAlignOfU128 - owner%program.BPFAlignOfU128) % program.BPFAlignOfU128
	l.Owner = owner
	l.Utxo = owner + common.PubkeyLength
	l.End = l.Utxo + common.UtxoMetaLength + 4
	return l
}

// OriginalLenOffset is where the entry data length is stored.
func (l Layout) OriginalLenOffset() int { return l.Key + common.PubkeyLength }

// DataLenOffset is where the current data length is stored.
func (l Layout) DataLenOffset() int { return l.Data - 8 }

// AccountInfo is a view over one account slot. Views created for duplicate
// slots are the same *AccountInfo, so borrows and reallocations made through
// any alias are observed by all of them.
//
// An AccountInfo is not safe for concurrent use; an invocation is single threaded.
type AccountInfo struct {
	buf    []byte
	layout Layout
	cell   *cell

	IsSigner     bool
	IsWritable   bool
	IsExecutable bool
}

// NewView wraps the slot at l inside buf without copying.
func NewView(buf []byte, l Layout, isSigner, isWritable, isExecutable bool) (*AccountInfo, error) {
	if l.End > len(buf) || l.Key < 0 {
		return nil, fmt.Errorf("%w: account slot [%d, %d) outside buffer of %d bytes", program.ErrMalformedInput, l.Key, l.End, len(buf))
	}
	a := &AccountInfo{
		buf:          buf,
		layout:       l,
		IsSigner:     isSigner,
		IsWritable:   isWritable,
		IsExecutable: isExecutable,
	}
	orig := binary.LittleEndian.Uint64(buf[l.OriginalLenOffset():])
	cur := binary.LittleEndian.Uint64(buf[l.DataLenOffset():])
	limit := uint64(l.Owner - l.Data)
	if limit < program.MaxPermittedDataIncrease || orig > limit-program.MaxPermittedDataIncrease || cur > limit {
		return nil, fmt.Errorf("%w: data length %d (original %d) overruns slot", program.ErrMalformedInput, cur, orig)
	}
	a.cell = &cell{buf: buf, off: l.Data, origLen: int(orig), capLen: int(limit)}
	return a, nil
}

// NewAccountInfo builds a standalone view backed by its own buffer. Hosts and
// tests use it to hand accounts to code that expects views.
func NewAccountInfo(key, owner common.Pubkey, utxo common.UtxoMeta, data []byte, isSigner, isWritable, isExecutable bool) *AccountInfo {
	l := LayoutAt(0, len(data))
	buf := make([]byte, l.End)
	copy(buf[l.Key:], key[:])
	binary.LittleEndian.PutUint64(buf[l.OriginalLenOffset():], uint64(len(data)))
	binary.LittleEndian.PutUint64(buf[l.DataLenOffset():], uint64(len(data)))
	copy(buf[l.Data:], data)
	copy(buf[l.Owner:], owner[:])
	copy(buf[l.Utxo:], utxo[:])

	a, err := NewView(buf, l, isSigner, isWritable, isExecutable)
	if err != nil {
		panic(err)
	}
	return a
}

// Key returns the account identifier.
func (a *AccountInfo) Key() common.Pubkey {
	var k common.Pubkey
	copy(k[:], a.buf[a.layout.Key:])
	return k
}

// Owner returns the program that owns the account.
func (a *AccountInfo) Owner() common.Pubkey {
	var o common.Pubkey
	copy(o[:], a.buf[a.layout.Owner:])
	return o
}

// Utxo returns the Bitcoin output the account is anchored to.
func (a *AccountInfo) Utxo() common.UtxoMeta {
	var u common.UtxoMeta
	copy(u[:], a.buf[a.layout.Utxo:])
	return u
}

// IsOwnedBy reports whether program owns the account.
func (a *AccountInfo) IsOwnedBy(program common.Pubkey) bool { return a.Owner() == program }

// DataLen returns the current data length.
func (a *AccountInfo) DataLen() int { return a.cell.len() }

// DataIsEmpty reports whether the account holds no data.
func (a *AccountInfo) DataIsEmpty() bool { return a.DataLen() == 0 }

// OriginalDataLen returns the data length at invocation entry.
func (a *AccountInfo) OriginalDataLen() int { return a.cell.origLen }

// TryBorrowData takes shared access to the data. The returned release
// function must be called once the slice is no longer used; calling it more
// than once is harmless.
func (a *AccountInfo) TryBorrowData() ([]byte, func(), error) {
	if !a.cell.acquire(false) {
		return nil, nop, program.ErrAccountBorrowFailed
	}
	return a.cell.data(), a.cell.releaser(false), nil
}

// TryBorrowMutData takes exclusive access to the data.
func (a *AccountInfo) TryBorrowMutData() ([]byte, func(), error) {
	if !a.cell.acquire(true) {
		return nil, nop, program.ErrAccountBorrowFailed
	}
	return a.cell.data(), a.cell.releaser(true), nil
}

// Realloc resizes the data in place. Growth is bounded by
// MaxPermittedDataIncrease over the original length. Newly exposed bytes are
// zeroed only when zeroInit is set; otherwise a shrink followed by a grow
// exposes whatever was there before.
func (a *AccountInfo) Realloc(newLen int, zeroInit bool) error {
	if !a.cell.acquire(true) {
		return program.ErrAccountBorrowFailed
	}
	defer a.cell.release(true)

	oldLen := a.cell.len()
	if newLen == oldLen {
		return nil
	}
	if err := a.cell.checkLen(newLen); err != nil {
		return err
	}
	a.cell.setLen(newLen)
	if zeroInit && newLen > oldLen {
		clear(a.cell.buf[a.cell.off+oldLen : a.cell.off+newLen])
	}
	return nil
}

// SyncFromHost overwrites owner and data after a nested invocation changed
// them. It ignores outstanding borrows and is reserved to the runtime.
func (a *AccountInfo) SyncFromHost(owner common.Pubkey, data []byte) error {
	if err := a.cell.checkLen(len(data)); err != nil {
		return err
	}
	a.cell.setLen(len(data))
	copy(a.cell.buf[a.cell.off:], data)
	copy(a.buf[a.layout.Owner:], owner[:])
	return nil
}

// Layout returns the slot offsets inside the backing buffer.
func (a *AccountInfo) Layout() Layout { return a.layout }

func (a *AccountInfo) String() string {
	return fmt.Sprintf("AccountInfo{key: %s, owner: %s, utxo: %s, signer: %t, writable: %t, executable: %t, data_len: %d}",
		a.Key(), a.Owner(), a.Utxo(), a.IsSigner, a.IsWritable, a.IsExecutable, a.DataLen())
}

// Dump renders the view including its data for debugging.
func (a *AccountInfo) Dump() string {
	return a.String() + "\n" + spew.Sdump(a.cell.data())
}

// Iter walks an account list the way programs consume their inputs.
type Iter struct {
	accounts []*AccountInfo
	pos      int
}

// NewIter starts an iterator over accounts.
func NewIter(accounts []*AccountInfo) *Iter { return &Iter{accounts: accounts} }

// Next returns the next account or ErrNotEnoughAccountKeys.
func (it *Iter) Next() (*AccountInfo, error) {
	if it.pos >= len(it.accounts) {
		return nil, program.ErrNotEnoughAccountKeys
	}
	a := it.accounts[it.pos]
	it.pos++
	return a, nil
}
