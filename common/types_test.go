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
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func TestSystemProgram(t *testing.T) {
	sys := SystemProgram()
	for i := 0; i < PubkeyLength-1; i++ {
		if sys[i] != 0 {
			t.Fatalf("byte %d: have %d, want 0", i, sys[i])
		}
	}
	if sys[31] != 1 {
		t.Fatalf("last byte: have %d, want 1", sys[31])
	}
	if !sys.IsSystemProgram() {
		t.Fatal("system program not recognised")
	}
	if (Pubkey{}).IsSystemProgram() {
		t.Fatal("zero key recognised as system program")
	}
}

func TestBytesToPubkeyLength(t *testing.T) {
	tests := []struct {
		size int
		ok   bool
	}{
		{0, false}, {31, false}, {32, true}, {33, false},
	}
	for _, test := range tests {
		_, err := BytesToPubkey(make([]byte, test.size))
		if test.ok && err != nil {
			t.Errorf("size %d: unexpected error %v", test.size, err)
		}
		if !test.ok && !errors.Is(err, ErrInvalidLength) {
			t.Errorf("size %d: have %v, want ErrInvalidLength", test.size, err)
		}
	}
	require.Panics(t, func() { MustBytesToPubkey([]byte{1}) })
}

func TestPubkeyText(t *testing.T) {
	var p Pubkey
	for i := range p {
		p[i] = byte(i)
	}
	want := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	require.Equal(t, want, p.String())
	require.Equal(t, want, fmt.Sprintf("%x", p))
	require.Equal(t, "0x"+want, fmt.Sprintf("%#x", p))

	parsed, err := HexToPubkey(want)
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	parsed, err = HexToPubkey("0x" + want)
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	_, err = HexToPubkey(want[:62])
	require.Error(t, err)
}

func TestHashText(t *testing.T) {
	var h Hash
	h[0], h[31] = 0xab, 0xcd
	text, err := h.MarshalText()
	require.NoError(t, err)

	var back Hash
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, h, back)
	require.True(t, Hash{}.Less(h))
	require.False(t, h.Less(h))
}

func TestUtxoMetaAccessors(t *testing.T) {
	var txid [32]byte
	for i := range txid {
		txid[i] = byte(0xff - i)
	}
	u := NewUtxoMeta(txid, 7)
	require.Equal(t, txid, u.Txid())
	require.Equal(t, uint32(7), u.Vout())
	require.Equal(t, []byte{7, 0, 0, 0}, u.VoutBytes())

	u.SetVout(math.MaxUint32)
	require.Equal(t, txid, u.Txid(), "vout rewrite touched txid")
	require.Equal(t, uint32(math.MaxUint32), u.Vout())

	var other [32]byte
	other[0] = 1
	u.SetTxid(other)
	require.Equal(t, uint32(math.MaxUint32), u.Vout(), "txid rewrite touched vout")
}

func TestUtxoMetaOutPoint(t *testing.T) {
	display := "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	h, err := chainhash.NewHashFromStr(display)
	require.NoError(t, err)

	u := NewUtxoMeta(ReverseTxid(*h), 3)
	require.Equal(t, display+":3", u.String())

	op := u.OutPoint()
	require.Equal(t, *h, op.Hash)
	require.Equal(t, uint32(3), op.Index)
	require.Equal(t, u, UtxoMetaFromOutPoint(op))
}

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		op       func(x, y uint64) (uint64, error)
		x, y     uint64
		want     uint64
		overflow bool
	}{
		{CheckedAdd, 1, 2, 3, false},
		{CheckedAdd, math.MaxUint64, 1, 0, true},
		{CheckedSub, 5, 3, 2, false},
		{CheckedSub, 3, 5, 0, true},
		{CheckedMul, 1 << 32, 1 << 31, 1 << 63, false},
		{CheckedMul, 1 << 32, 1 << 32, 0, true},
	}
	for i, test := range tests {
		have, err := test.op(test.x, test.y)
		if test.overflow {
			if !errors.Is(err, ErrArithmeticOverflow) {
				t.Errorf("test %d: have err %v, want overflow", i, err)
			}
			continue
		}
		if err != nil || have != test.want {
			t.Errorf("test %d: have (%d, %v), want %d", i, have, err, test.want)
		}
	}
	if SaturatingSub(3, 5) != 0 || SaturatingSub(5, 3) != 2 {
		t.Error("saturating sub mismatch")
	}
}
