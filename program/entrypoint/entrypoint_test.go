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
	"testing"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
	"github.com/probeum/go-arch/program/alloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logSys struct{ logs []string }

func (s *logSys) Invoke(*types.Instruction, []*account.AccountInfo) uint64 { return 0 }
func (s *logSys) SetTransactionToSign([]byte, []common.Pubkey) uint64      { return 0 }
func (s *logSys) SetReturnData([]byte)                                     {}
func (s *logSys) GetReturnData() (common.Pubkey, []byte)                   { return common.Pubkey{}, nil }
func (s *logSys) GetBitcoinTx([32]byte) []byte                             { return nil }
func (s *logSys) GetNetworkXOnlyPubkey() [32]byte                          { return [32]byte{} }
func (s *logSys) ValidateUtxoOwnership(common.UtxoMeta, common.Pubkey) bool {
	return false
}
func (s *logSys) GetAccountScriptPubkey(common.Pubkey) (out [program.AccountScriptPubkeyLength]byte) {
	return out
}
func (s *logSys) Log(msg string) { s.logs = append(s.logs, msg) }

func pk(b byte) common.Pubkey {
	var k common.Pubkey
	k[0] = b
	return k
}

func sampleInputs() []InputAccount {
	return []InputAccount{
		{Key: pk(1), Owner: pk(9), Utxo: common.NewUtxoMeta([32]byte{1}, 0), Data: []byte{1, 2, 3}, IsSigner: true, IsWritable: true},
		{Key: pk(2), Owner: pk(9), Utxo: common.NewUtxoMeta([32]byte{2}, 5), Data: nil},
		{Key: pk(1), IsWritable: true},
		{Key: pk(3), Owner: common.SystemProgram(), Data: make([]byte, 13), IsExecutable: true},
	}
}

func TestSerializeDeserialize(t *testing.T) {
	programID := pk(7)
	inputs := sampleInputs()
	buf, layout, err := Serialize(programID, inputs, []byte("hello"))
	require.NoError(t, err)

	id, accounts, data, err := Deserialize(buf)
	require.NoError(t, err)
	require.Equal(t, programID, id)
	require.Equal(t, []byte("hello"), data)
	require.Len(t, accounts, 4)

	for i, a := range accounts {
		in := inputs[i]
		if layout.Slots[i].Dup >= 0 {
			in = inputs[layout.Slots[i].Dup]
		}
		assert.Equal(t, in.Key, a.Key(), "slot %d", i)
		assert.Equal(t, in.Owner, a.Owner(), "slot %d", i)
		assert.Equal(t, in.Utxo, a.Utxo(), "slot %d", i)
		assert.Equal(t, len(in.Data), a.DataLen(), "slot %d", i)
		assert.Equal(t, in.IsExecutable, a.IsExecutable, "slot %d", i)
	}
	require.Equal(t, 0, layout.Slots[2].Dup)
	require.True(t, accounts[1].DataIsEmpty())
	require.True(t, accounts[0].IsSigner)
}

func TestDuplicateAliasing(t *testing.T) {
	buf, _, err := Serialize(pk(7), sampleInputs(), nil)
	require.NoError(t, err)
	_, accounts, _, err := Deserialize(buf)
	require.NoError(t, err)

	require.Same(t, accounts[0], accounts[2])

	data, release, err := accounts[2].TryBorrowMutData()
	require.NoError(t, err)
	data[0] = 0x55
	_, _, err = accounts[0].TryBorrowData()
	require.ErrorIs(t, err, program.ErrAccountBorrowFailed, "borrow through one alias blocks the other")
	release()

	view, release, err := accounts[0].TryBorrowData()
	require.NoError(t, err)
	require.Equal(t, byte(0x55), view[0])
	release()

	require.NoError(t, accounts[2].Realloc(10, true))
	require.Equal(t, 10, accounts[0].DataLen())
}

func TestDuplicatePrivilegesMerged(t *testing.T) {
	inputs := []InputAccount{{Key: pk(1)}, {Key: pk(1), IsSigner: true, IsWritable: true}}
	buf, _, err := Serialize(pk(7), inputs, nil)
	require.NoError(t, err)
	_, accounts, _, err := Deserialize(buf)
	require.NoError(t, err)
	require.True(t, accounts[0].IsWritable)
	require.True(t, accounts[1].IsSigner)
}

func TestReadBackAfterRealloc(t *testing.T) {
	buf, layout, err := Serialize(pk(7), sampleInputs(), nil)
	require.NoError(t, err)
	_, accounts, _, err := Deserialize(buf)
	require.NoError(t, err)

	require.NoError(t, accounts[0].Realloc(3+program.MaxPermittedDataIncrease, true))
	data, release, _ := accounts[0].TryBorrowMutData()
	data[len(data)-1] = 0xff
	release()

	out, err := layout.Data(buf, 2)
	require.NoError(t, err)
	require.Len(t, out, 3+program.MaxPermittedDataIncrease)
	require.Equal(t, []byte{1, 2, 3}, out[:3])
	require.Equal(t, byte(0xff), out[len(out)-1])
	require.Equal(t, pk(9), layout.Owner(buf, 0))

	// The owner field of the next slot is untouched by the growth.
	next, err := layout.Data(buf, 1)
	require.NoError(t, err)
	require.Empty(t, next)
	require.Equal(t, pk(9), layout.Owner(buf, 1))
}

// TestDeserializeHandBuiltBuffer decodes a buffer assembled field by field
// rather than through Serialize.
func TestDeserializeHandBuiltBuffer(t *testing.T) {
	key, owner, programID := pk(1), pk(9), pk(7)
	txid := [32]byte{7}

	var buf []byte
	buf = binary.LittleEndian.AppendUint64(buf, 2)
	// slot 0: marker, padding, signer, writable, executable
	buf = append(buf, 0xff, 0, 0, 0, 0, 1, 1, 0)
	buf = append(buf, key[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, 3) // length at entry
	buf = binary.LittleEndian.AppendUint64(buf, 3) // current length
	buf = append(buf, 0xaa, 0xbb, 0xcc)
	buf = append(buf, make([]byte, program.MaxPermittedDataIncrease)...)
	for len(buf)%program.BPFAlignOfU128 != 0 {
		buf = append(buf, 0)
	}
	require.Equal(t, 10312, len(buf))
	buf = append(buf, owner[:]...)
	buf = append(buf, txid[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	buf = append(buf, 0, 0, 0, 0)
	// slot 1 duplicates slot 0
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
	buf = binary.LittleEndian.AppendUint64(buf, 2)
	buf = append(buf, 5, 6)
	buf = append(buf, programID[:]...)
	require.Equal(t, 10434, len(buf))

	id, accounts, data, err := Deserialize(buf)
	require.NoError(t, err)
	assert.Equal(t, programID, id)
	assert.Equal(t, []byte{5, 6}, data)
	require.Len(t, accounts, 2)

	a := accounts[0]
	assert.Equal(t, key, a.Key())
	assert.Equal(t, owner, a.Owner())
	assert.Equal(t, common.NewUtxoMeta(txid, 2), a.Utxo())
	assert.True(t, a.IsSigner)
	assert.True(t, a.IsWritable)
	assert.False(t, a.IsExecutable)
	assert.Equal(t, 3, a.OriginalDataLen())
	got, release, err := a.TryBorrowData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, got)
	release()
	assert.Same(t, a, accounts[1])

	// A current length reaching into the owner field is rejected.
	bad := append([]byte(nil), buf...)
	binary.LittleEndian.PutUint64(bad[56:], 10312-64+1)
	_, _, _, err = Deserialize(bad)
	assert.ErrorIs(t, err, program.ErrMalformedInput)
}

func TestDeserializeMalformed(t *testing.T) {
	buf, _, err := Serialize(pk(7), sampleInputs(), []byte{1, 2})
	require.NoError(t, err)

	for _, n := range []int{0, 7, 8, 9, 40, 100, len(buf) / 2, len(buf) - 33, len(buf) - 1} {
		_, _, _, err := Deserialize(buf[:n])
		if !errors.Is(err, program.ErrMalformedInput) {
			t.Errorf("prefix %d: have %v, want ErrMalformedInput", n, err)
		}
	}
	_, _, _, err = Deserialize(append(append([]byte{}, buf...), 0))
	require.ErrorIs(t, err, program.ErrMalformedInput)

	huge := make([]byte, 16)
	binary.LittleEndian.PutUint64(huge, 1<<40)
	_, _, _, err = Deserialize(huge)
	require.ErrorIs(t, err, program.ErrMalformedInput)
}

func TestDeserializeForwardDuplicate(t *testing.T) {
	buf := make([]byte, 8+8+8+32)
	binary.LittleEndian.PutUint64(buf, 1)
	buf[8] = 0 // slot 0 cannot alias itself
	_, _, _, err := Deserialize(buf)
	require.ErrorIs(t, err, ErrInvalidDuplicateIndex)
	require.ErrorIs(t, err, program.ErrMalformedInput)
}

func TestEntrypointStatus(t *testing.T) {
	buf, _, err := Serialize(pk(7), sampleInputs(), []byte{42})
	require.NoError(t, err)

	sys := &logSys{}
	ctx := &Context{Heap: alloc.New(), Sys: sys}

	code := Entrypoint(buf, ctx, func(ctx *Context, id common.Pubkey, accounts []*account.AccountInfo, data []byte) error {
		if id != pk(7) || len(accounts) != 4 || data[0] != 42 {
			return program.ErrInvalidArgument
		}
		_, err := ctx.Heap.Alloc(64, 8)
		return err
	})
	require.Equal(t, program.Success, code)

	code = Entrypoint(buf, ctx, func(*Context, common.Pubkey, []*account.AccountInfo, []byte) error {
		return program.Custom(3)
	})
	require.Equal(t, uint64(3), code)
	require.Equal(t, "custom program error: 0x3", sys.logs[len(sys.logs)-1])

	code = Entrypoint(buf, ctx, func(*Context, common.Pubkey, []*account.AccountInfo, []byte) error {
		panic("boom")
	})
	require.Equal(t, program.ErrProgramFailed.Code(), code)

	code = Entrypoint(buf, ctx, func(ctx *Context, _ common.Pubkey, _ []*account.AccountInfo, _ []byte) error {
		_, err := ctx.Heap.AllocBytes(alloc.HeapLength, 1)
		return err
	})
	require.Equal(t, program.ErrOutOfMemory.Code(), code, "heap exhaustion")

	code = Entrypoint(buf[:20], ctx, func(*Context, common.Pubkey, []*account.AccountInfo, []byte) error {
		t.Fatal("handler ran on malformed input")
		return nil
	})
	require.Equal(t, program.ErrMalformedInput.Code(), code)
}
