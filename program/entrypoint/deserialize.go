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
	"errors"
	"fmt"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
)

// ErrInvalidDuplicateIndex is returned when a duplicate slot names a slot
// that is not before it.
var ErrInvalidDuplicateIndex = errors.New("duplicate account references a slot that does not precede it")

const (
	nonDupHeader = 8 // marker, 4 bytes padding, signer, writable, executable
	dupSlotSize  = 8 // marker, 7 bytes padding
)

type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int, what string) error {
	if n < 0 || len(r.buf)-r.pos < n {
		return fmt.Errorf("%w: %s needs %d bytes at offset %d, %d left", program.ErrMalformedInput, what, n, r.pos, len(r.buf)-r.pos)
	}
	return nil
}

func (r *reader) u64(what string) (uint64, error) {
	if err := r.need(8, what); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Deserialize decodes the flat input buffer without copying account data.
// The returned views alias input; a duplicate slot yields the very view of
// the slot it references.
func Deserialize(input []byte) (common.Pubkey, []*account.AccountInfo, []byte, error) {
	var programID common.Pubkey

	r := &reader{buf: input}
	count, err := r.u64("account count")
	if err != nil {
		return programID, nil, nil, err
	}
	if count > uint64(len(input)-r.pos)/dupSlotSize {
		return programID, nil, nil, fmt.Errorf("%w: %d accounts cannot fit in %d bytes", program.ErrMalformedInput, count, len(input))
	}
	accounts := make([]*account.AccountInfo, count)
	for i := range accounts {
		if err := r.need(dupSlotSize, "account slot"); err != nil {
			return programID, nil, nil, err
		}
		marker := input[r.pos]
		if marker != program.NonDupMarker {
			if int(marker) >= i {
				return programID, nil, nil, fmt.Errorf("%w: %w: slot %d references %d", program.ErrMalformedInput, ErrInvalidDuplicateIndex, i, marker)
			}
			accounts[i] = accounts[marker]
			r.pos += dupSlotSize
			continue
		}
		flags := input[r.pos+5 : r.pos+8]
		keyOff := r.pos + nonDupHeader
		if err := r.need(nonDupHeader+common.PubkeyLength+16, "account header"); err != nil {
			return programID, nil, nil, err
		}
		origLen := binary.LittleEndian.Uint64(input[keyOff+common.PubkeyLength:])
		if origLen > program.MaxPermittedDataLength {
			return programID, nil, nil, fmt.Errorf("%w: slot %d data length %d", program.ErrMalformedInput, i, origLen)
		}
		// The slot is sized by the length at entry, which is also the length
		// the realloc bound is measured from. A host writes the same value to
		// both length fields; NewView rejects a current length past the slack.
		layout := account.LayoutAt(keyOff, int(origLen))
		view, err := account.NewView(input, layout, flags[0] != 0, flags[1] != 0, flags[2] != 0)
		if err != nil {
			return programID, nil, nil, fmt.Errorf("slot %d: %w", i, err)
		}
		accounts[i] = view
		r.pos = layout.End
	}

	dataLen, err := r.u64("instruction data length")
	if err != nil {
		return programID, nil, nil, err
	}
	if dataLen > uint64(len(input)) {
		return programID, nil, nil, fmt.Errorf("%w: instruction data length %d", program.ErrMalformedInput, dataLen)
	}
	if err := r.need(int(dataLen)+common.PubkeyLength, "instruction data and program id"); err != nil {
		return programID, nil, nil, err
	}
	data := input[r.pos : r.pos+int(dataLen) : r.pos+int(dataLen)]
	r.pos += int(dataLen)
	copy(programID[:], input[r.pos:])
	r.pos += common.PubkeyLength

	if r.pos != len(input) {
		return programID, nil, nil, fmt.Errorf("%w: %d trailing bytes", program.ErrMalformedInput, len(input)-r.pos)
	}
	return programID, accounts, data, nil
}
