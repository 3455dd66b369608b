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

package account

import (
	"encoding/binary"
	"fmt"

	"github.com/probeum/go-arch/program"
)

func nop() {}

// cell guards the data region of one account. borrows counts shared
// borrows, -1 marks an exclusive one.
type cell struct {
	buf     []byte
	off     int
	origLen int
	capLen  int
	borrows int
}

func (c *cell) len() int {
	return int(binary.LittleEndian.Uint64(c.buf[c.off-8:]))
}

func (c *cell) setLen(n int) {
	binary.LittleEndian.PutUint64(c.buf[c.off-8:], uint64(n))
}

func (c *cell) data() []byte {
	return c.buf[c.off : c.off+c.len() : c.off+c.capLen]
}

func (c *cell) checkLen(n int) error {
	if n < 0 || n > program.MaxPermittedDataLength {
		return fmt.Errorf("%w: length %d", program.ErrInvalidRealloc, n)
	}
	if n > c.origLen && n-c.origLen > program.MaxPermittedDataIncrease {
		return fmt.Errorf("%w: growth %d over original %d exceeds %d", program.ErrInvalidRealloc, n-c.origLen, c.origLen, program.MaxPermittedDataIncrease)
	}
	return nil
}

func (c *cell) acquire(exclusive bool) bool {
	switch {
	case c.borrows < 0:
		return false
	case exclusive && c.borrows > 0:
		return false
	case exclusive:
		c.borrows = -1
	default:
		c.borrows++
	}
	return true
}

func (c *cell) release(exclusive bool) {
	if exclusive {
		c.borrows = 0
	} else if c.borrows > 0 {
		c.borrows--
	}
}

func (c *cell) releaser(exclusive bool) func() {
	done := false
	return func() {
		if !done {
			done = true
			c.release(exclusive)
		}
	}
}
