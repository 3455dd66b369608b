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

package outcome

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/rawdb"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(t *testing.T, data byte) *types.RuntimeTransaction {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyOf(key)
	msg := &types.Message{
		Signers: []common.Pubkey{signer},
		Instructions: []*types.Instruction{{
			ProgramID: common.SystemProgram(),
			Accounts:  []types.AccountMeta{types.NewAccountMeta(signer, true)},
			Data:      []byte{data},
		}},
	}
	rtx, err := types.NewRuntimeTransaction(0, msg, []*btcec.PrivateKey{key})
	require.NoError(t, err)
	return rtx
}

func TestLifecycle(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	s, err := NewStore(db, 0)
	require.NoError(t, err)

	rtx := newTx(t, 1)
	txid, err := s.Begin(rtx)
	require.NoError(t, err)
	_, err = s.Begin(rtx)
	require.ErrorIs(t, err, ErrAlreadyExists)

	p, err := s.Get(txid)
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, p.Status)

	ix := common.Hash{1}
	btc1, btc2 := common.Hash{0xa}, common.Hash{0xb}
	require.NoError(t, s.RecordAnchor(txid, ix, btc1))
	require.NoError(t, s.RecordAnchor(txid, ix, btc2))
	require.NoError(t, s.RecordAnchor(txid, ix, btc1), "recording twice is a no-op")
	require.NoError(t, s.Finalize(txid, types.StatusProcessed, "ignored"))

	p, err = s.Get(txid)
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessed, p.Status)
	assert.Empty(t, p.FailureReason)
	assert.Equal(t, []common.Hash{btc1, btc2}, p.BitcoinTxids[ix])

	origin, instruction, err := s.Origin(btc2)
	require.NoError(t, err)
	assert.Equal(t, txid, origin)
	assert.Equal(t, ix, instruction)

	// Terminal records are immutable.
	assert.ErrorIs(t, s.Finalize(txid, types.StatusFailed, "late"), ErrAlreadyFinalized)
	assert.ErrorIs(t, s.RecordAnchor(txid, ix, common.Hash{0xc}), ErrAlreadyFinalized)

	// A store without a warm cache reads the same record back.
	cold, err := NewStore(db, 1)
	require.NoError(t, err)
	p2, err := cold.GetProcessedTransaction(txid)
	require.NoError(t, err)
	assert.Equal(t, p.BitcoinTxids, p2.BitcoinTxids)
	assert.Equal(t, types.StatusProcessed, p2.Status)
}

func TestFailure(t *testing.T) {
	s, err := NewStore(rawdb.NewMemoryDatabase(), 4)
	require.NoError(t, err)
	txid, err := s.Begin(newTx(t, 2))
	require.NoError(t, err)

	assert.Error(t, s.Finalize(txid, types.StatusProcessing, ""))
	require.NoError(t, s.Finalize(txid, types.StatusFailed, "custom program error: 0x1"))
	p, err := s.Get(txid)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, p.Status)
	assert.Equal(t, "custom program error: 0x1", p.FailureReason)
}

func TestNotFound(t *testing.T) {
	s, err := NewStore(rawdb.NewMemoryDatabase(), 4)
	require.NoError(t, err)
	_, err = s.Get(common.Hash{9})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.RecordAnchor(common.Hash{9}, common.Hash{}, common.Hash{1}), ErrNotFound)
	assert.ErrorIs(t, s.Finalize(common.Hash{9}, types.StatusFailed, ""), ErrNotFound)
	_, _, err = s.Origin(common.Hash{1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s, err := NewStore(rawdb.NewMemoryDatabase(), 4)
	require.NoError(t, err)
	txid, err := s.Begin(newTx(t, 3))
	require.NoError(t, err)

	p, err := s.Get(txid)
	require.NoError(t, err)
	p.Status = types.StatusFailed
	p.BitcoinTxids[common.Hash{1}] = []common.Hash{{2}}

	again, err := s.Get(txid)
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, again.Status)
	assert.Empty(t, again.BitcoinTxids)
}
