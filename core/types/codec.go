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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/probeum/go-arch/common"
)

// MaxListLength is the largest element count a single-byte length prefix can carry.
const MaxListLength = 255

var (
	// ErrTruncated is returned when input ends before a value is complete.
	ErrTruncated = errors.New("truncated input")
	// ErrTrailingBytes is returned when input continues past a complete value.
	ErrTrailingBytes = errors.New("trailing bytes after value")
	// ErrTooManyItems is returned when a list does not fit its single-byte count.
	ErrTooManyItems = errors.New("too many items for single-byte count")
)

// DoubleHash returns SHA-256(SHA-256(b)).
func DoubleHash(b []byte) common.Hash {
	return common.Hash(chainhash.DoubleHashH(b))
}

func checkListLength(what string, n int) error {
	if n > MaxListLength {
		return fmt.Errorf("%w: %d %s", ErrTooManyItems, n, what)
	}
	return nil
}

// decoder is a bounds checked read cursor over an encoded value.
type decoder struct {
	buf []byte
	pos int
}

func newDecoder(b []byte) *decoder { return &decoder{buf: b} }

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) next(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, d.pos, d.remaining())
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) bool() (bool, error) {
	b, err := d.u8()
	return b != 0, err
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// bytes reads a u64 length prefixed byte string and copies it out.
func (d *decoder) bytes() ([]byte, error) {
	n, err := d.u64()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.remaining()) {
		return nil, fmt.Errorf("%w: length prefix %d exceeds remaining %d", ErrTruncated, n, d.remaining())
	}
	b, _ := d.next(int(n))
	return common.CopyBytes(b), nil
}

func (d *decoder) pubkey() (common.Pubkey, error) {
	var p common.Pubkey
	b, err := d.next(common.PubkeyLength)
	if err == nil {
		copy(p[:], b)
	}
	return p, err
}

func (d *decoder) hash() (common.Hash, error) {
	var h common.Hash
	b, err := d.next(common.HashLength)
	if err == nil {
		copy(h[:], b)
	}
	return h, err
}

func (d *decoder) finish() error {
	if d.remaining() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingBytes, d.remaining())
	}
	return nil
}

func appendU32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }

func appendU64(b []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(b, v) }

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}
