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

package entrypoint

import (
	"encoding/binary"
	"fmt"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
)

// InputAccount is the host's description of one account handed to a program.
type InputAccount struct {
	Key          common.Pubkey
	Owner        common.Pubkey
	Utxo         common.UtxoMeta
	Data         []byte
	IsSigner     bool
	IsWritable   bool
	IsExecutable bool
}

// Slot locates one account in a serialized input buffer. Dup is the index
// of the slot it aliases, or -1.
type Slot struct {
	Dup    int
	Layout account.Layout
}

// InputLayout records where Serialize put things so the host can read the
// program's changes back.
type InputLayout struct {
	Slots []Slot
}

// Serialize builds the flat input buffer for a program invocation. Repeated
// keys become duplicate slots pointing at their first occurrence, which
// carries the union of the requested privileges.
func Serialize(programID common.Pubkey, accounts []InputAccount, data []byte) ([]byte, *InputLayout, error) {
	var (
		first  = make(map[common.Pubkey]int)
		merged = make([]InputAccount, len(accounts))
		layout = &InputLayout{Slots: make([]Slot, len(accounts))}
		size   = 8
	)
	copy(merged, accounts)
	for i, a := range accounts {
		if j, ok := first[a.Key]; ok {
			merged[j].IsSigner = merged[j].IsSigner || a.IsSigner
			merged[j].IsWritable = merged[j].IsWritable || a.IsWritable
			layout.Slots[i] = Slot{Dup: j}
			size += dupSlotSize
			continue
		}
		if i >= program.NonDupMarker {
			return nil, nil, fmt.Errorf("%w: too many accounts (%d)", program.ErrMalformedInput, len(accounts))
		}
		if len(a.Data) > program.MaxPermittedDataLength {
			return nil, nil, fmt.Errorf("%w: account %s holds %d bytes", program.ErrInvalidRealloc, a.Key, len(a.Data))
		}
		first[a.Key] = i
		l := account.LayoutAt(size+nonDupHeader, len(a.Data))
		layout.Slots[i] = Slot{Dup: -1, Layout: l}
		size = l.End
	}
	size += 8 + len(data) + common.PubkeyLength

	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf, uint64(len(accounts)))
	pos := 8
	for i, slot := range layout.Slots {
		if slot.Dup >= 0 {
			buf[pos] = byte(slot.Dup)
			pos += dupSlotSize
			continue
		}
		a, l := merged[i], slot.Layout
		buf[pos] = program.NonDupMarker
		buf[pos+5] = boolByte(a.IsSigner)
		buf[pos+6] = boolByte(a.IsWritable)
		buf[pos+7] = boolByte(a.IsExecutable)
		copy(buf[l.Key:], a.Key[:])
		binary.LittleEndian.PutUint64(buf[l.OriginalLenOffset():], uint64(len(a.Data)))
		binary.LittleEndian.PutUint64(buf[l.DataLenOffset():], uint64(len(a.Data)))
		copy(buf[l.Data:], a.Data)
		copy(buf[l.Owner:], a.Owner[:])
		copy(buf[l.Utxo:], a.Utxo[:])
		pos = l.End
	}
	binary.LittleEndian.PutUint64(buf[pos:], uint64(len(data)))
	pos += 8
	pos += copy(buf[pos:], data)
	copy(buf[pos:], programID[:])
	return buf, layout, nil
}

// Data returns a copy of the current data of slot i, following duplicates.
func (l *InputLayout) Data(buf []byte, i int) ([]byte, error) {
	slot := l.Slots[i]
	if slot.Dup >= 0 {
		slot = l.Slots[slot.Dup]
	}
	n := binary.LittleEndian.Uint64(buf[slot.Layout.DataLenOffset():])
	if n > uint64(slot.Layout.Owner-slot.Layout.Data) {
		return nil, fmt.Errorf("%w: data length %d overruns slot %d", program.ErrInvalidRealloc, n, i)
	}
	return common.CopyBytes(buf[slot.Layout.Data : slot.Layout.Data+int(n)]), nil
}

// Owner returns the owner recorded in slot i, following duplicates.
func (l *InputLayout) Owner(buf []byte, i int) common.Pubkey {
	slot := l.Slots[i]
	if slot.Dup >= 0 {
		slot = l.Slots[slot.Dup]
	}
	var o common.Pubkey
	copy(o[:], buf[slot.Layout.Owner:])
	return o
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
