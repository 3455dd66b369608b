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

// Package alloc provides the per-invocation bump allocator programs use for
// dynamic memory.
package alloc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/program"
)

const (
	// HeapStartAddress is the virtual address the heap region is mapped at.
	HeapStartAddress uint64 = 0x300000000
	// HeapLength is the size of the heap region (32 KiB).
	HeapLength = 32 * 1024

	// cursorSize is the pointer-sized slot at the region start holding the cursor.
	cursorSize = 8
)

var (
	// ErrOutOfMemory is returned when an allocation does not fit below the cursor.
	ErrOutOfMemory = program.ErrOutOfMemory
	// ErrInvalidAlignment is returned for alignments that are not a power of two.
	ErrInvalidAlignment = errors.New("alloc: alignment must be a power of two")
	// ErrInvalidAddress is returned when an address range is outside the region.
	ErrInvalidAddress = errors.New("alloc: invalid heap address")
)

// BumpAllocator hands out memory from the top of a fixed region downward.
// Memory is never freed; the host discards the region when the invocation
// ends. The cursor lives in the first 8 bytes of the region, where zero means
// no allocation happened yet.
type BumpAllocator struct {
	start  uint64
	region []byte
}

// New returns an allocator over a fresh zeroed region of HeapLength bytes
// mapped at HeapStartAddress.
func New() *BumpAllocator {
	return NewWithRegion(HeapStartAddress, make([]byte, HeapLength))
}

// NewWithRegion returns an allocator over region, mapped at start.
func NewWithRegion(start uint64, region []byte) *BumpAllocator {
	if len(region) < cursorSize {
		panic(fmt.Sprintf("alloc: region of %d bytes cannot hold the cursor", len(region)))
	}
	return &BumpAllocator{start: start, region: region}
}

func (b *BumpAllocator) end() uint64 { return b.start + uint64(len(b.region)) }

func (b *BumpAllocator) cursor() uint64 {
	pos := binary.LittleEndian.Uint64(b.region)
	if pos == 0 {
		return b.end()
	}
	return pos
}

// Alloc reserves size bytes aligned to align and returns their address.
// The cursor only moves down; a request that would cross the cursor slot at
// the bottom of the region fails without changing state.
func (b *BumpAllocator) Alloc(size, align uint64) (uint64, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAlignment, align)
	}
	pos := common.SaturatingSub(b.cursor(), size)
	pos &^= align - 1
	if pos < b.start+cursorSize {
		return 0, fmt.Errorf("%w: %d bytes requested, %d remaining", ErrOutOfMemory, size, b.Remaining())
	}
	binary.LittleEndian.PutUint64(b.region, pos)
	return pos, nil
}

// AllocBytes is Alloc returning the reserved memory as a slice.
func (b *BumpAllocator) AllocBytes(size, align uint64) ([]byte, error) {
	addr, err := b.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	return b.Bytes(addr, size)
}

// Bytes returns the region memory at [addr, addr+size).
func (b *BumpAllocator) Bytes(addr, size uint64) ([]byte, error) {
	if addr < b.start+cursorSize || addr > b.end() || size > b.end()-addr {
		return nil, fmt.Errorf("%w: %#x+%d", ErrInvalidAddress, addr, size)
	}
	off := addr - b.start
	return b.region[off : off+size : off+size], nil
}

// Used returns the number of bytes between the cursor and the top of the region.
func (b *BumpAllocator) Used() uint64 { return b.end() - b.cursor() }

// Remaining returns the bytes still available below the cursor.
func (b *BumpAllocator) Remaining() uint64 {
	return common.SaturatingSub(b.cursor(), b.start+cursorSize)
}

// Reset forgets every allocation.
func (b *BumpAllocator) Reset() {
	binary.LittleEndian.PutUint64(b.region, 0)
}
