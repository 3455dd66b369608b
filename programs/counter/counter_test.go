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

package counter

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
	"github.com/probeum/go-arch/program/alloc"
	"github.com/probeum/go-arch/program/entrypoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSys records logs and return data; it knows no Bitcoin transactions.
type stubSys struct {
	logs       []string
	returnData []byte
}

func (s *stubSys) Invoke(*types.Instruction, []*account.AccountInfo) uint64 { return 0 }
func (s *stubSys) SetTransactionToSign([]byte, []common.Pubkey) uint64      { return 0 }
func (s *stubSys) SetReturnData(data []byte)                                { s.returnData = common.CopyBytes(data) }
func (s *stubSys) GetReturnData() (common.Pubkey, []byte)                   { return common.Pubkey{}, s.returnData }
func (s *stubSys) GetBitcoinTx([32]byte) []byte                             { return nil }
func (s *stubSys) GetNetworkXOnlyPubkey() [32]byte                          { return [32]byte{} }
func (s *stubSys) ValidateUtxoOwnership(common.UtxoMeta, common.Pubkey) bool {
	return false
}
func (s *stubSys) GetAccountScriptPubkey(common.Pubkey) (out [program.AccountScriptPubkeyLength]byte) {
	return out
}
func (s *stubSys) Log(msg string) { s.logs = append(s.logs, msg) }

var (
	programID = common.Pubkey{0xc0}
	userKey   = common.Pubkey{0x01}
)

// run executes one counter instruction over a single account and returns
// the status code and the account data afterwards.
func run(t *testing.T, sys *stubSys, in entrypoint.InputAccount, data []byte) (uint64, []byte) {
	buf, layout, err := entrypoint.Serialize(programID, []entrypoint.InputAccount{in}, data)
	require.NoError(t, err)
	code := entrypoint.Entrypoint(buf, &entrypoint.Context{Heap: alloc.New(), Sys: sys}, Process)
	out, err := layout.Data(buf, 0)
	require.NoError(t, err)
	return code, out
}

func counterAccount(data []byte) entrypoint.InputAccount {
	return entrypoint.InputAccount{Key: userKey, Owner: programID, Data: data, IsSigner: true, IsWritable: true}
}

func TestInitializeAndIncrement(t *testing.T) {
	sys := new(stubSys)
	code, data := run(t, sys, counterAccount(nil), []byte{Initialize, 'a', 'l', 'i', 'c', 'e'})
	require.Equal(t, program.Success, code)
	value, msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), value)
	assert.Equal(t, "alice's counter initialized", msg)
	assert.Equal(t, "alice", Name(msg))

	for want := uint32(1); want <= 3; want++ {
		code, data = run(t, sys, counterAccount(data), append([]byte{Increment}, "alice"...))
		require.Equal(t, program.Success, code, "logs: %v", sys.logs)
		value, msg, err = Decode(data)
		require.NoError(t, err)
		assert.Equal(t, want, value)
		assert.Equal(t, fmt.Sprintf("alice's counter updated to %d!", want), msg)
		assert.Equal(t, want, binary.LittleEndian.Uint32(sys.returnData))
	}
}

func TestCounterErrors(t *testing.T) {
	initialized := append([]byte{0, 0, 0, 0}, "bob's counter initialized"...)
	overflow := append([]byte{0xff, 0xff, 0xff, 0xff}, "bob's counter updated to 4294967295!"...)

	tests := []struct {
		name string
		in   entrypoint.InputAccount
		data []byte
		want error
	}{
		{"no name", counterAccount(nil), []byte{Initialize}, ErrInvalidData},
		{"unknown tag", counterAccount(nil), []byte{9, 'x'}, ErrInvalidData},
		{"initialized twice", counterAccount(initialized), []byte{Initialize, 'b'}, program.ErrAccountAlreadyInitialized},
		{"increment uninitialized", counterAccount(nil), []byte{Increment, 'b'}, program.ErrUninitializedAccount},
		{"overflow", counterAccount(overflow), []byte{Increment, 'b'}, program.ErrArithmeticOverflow},
		{"foreign account", entrypoint.InputAccount{Key: userKey, Owner: common.Pubkey{0xee}, IsWritable: true}, []byte{Initialize, 'b'}, program.ErrIncorrectProgramID},
		{"read-only account", entrypoint.InputAccount{Key: userKey, Owner: programID}, []byte{Initialize, 'b'}, program.ErrInvalidArgument},
	}
	for _, tt := range tests {
		code, _ := run(t, new(stubSys), tt.in, tt.data)
		if code != program.ErrorCode(tt.want) {
			t.Errorf("%s: code %#x, want %#x (%v)", tt.name, code, program.ErrorCode(tt.want), tt.want)
		}
	}
}

func TestAccountCount(t *testing.T) {
	in := []entrypoint.InputAccount{counterAccount(nil), {Key: common.Pubkey{2}, Owner: programID, IsWritable: true}}
	buf, _, err := entrypoint.Serialize(programID, in, []byte{Initialize, 'a'})
	require.NoError(t, err)
	code := entrypoint.Entrypoint(buf, &entrypoint.Context{Heap: alloc.New(), Sys: new(stubSys)}, Process)
	assert.Equal(t, program.ErrorCode(ErrAccountCount), code)
}

func TestAnchorNeedsBitcoinTx(t *testing.T) {
	initialized := append([]byte{0, 0, 0, 0}, "carol's counter initialized"...)
	code, _ := run(t, new(stubSys), counterAccount(initialized), []byte{IncrementAndAnchor, 'c'})
	assert.Equal(t, program.ErrProgramFailed.Code(), code)
}
