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

package bitcoin

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/crypto"
	"github.com/stretchr/testify/require"
)

func spend(prev wire.OutPoint, values ...int64) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&prev, nil, nil))
	for _, v := range values {
		tx.AddTxOut(wire.NewTxOut(v, []byte{txscript.OP_TRUE}))
	}
	return tx
}

func TestMemoryChainLifecycle(t *testing.T) {
	c := NewMemoryChain()
	funded := c.Fund([]byte{txscript.OP_TRUE}, 10000)

	n, err := c.Confirmations(funded.Hash)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	tx := spend(funded, 4000, 5000)
	txid, err := c.SendRawTransaction(tx)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), txid)

	n, err = c.Confirmations(txid)
	require.NoError(t, err)
	require.Zero(t, n, "mempool transaction reported confirmed")

	require.Equal(t, 1, c.Mine())
	n, _ = c.Confirmations(txid)
	require.Equal(t, int64(1), n)
	c.Mine()
	n, _ = c.Confirmations(txid)
	require.Equal(t, int64(2), n)

	got, err := c.GetRawTransaction(txid)
	require.NoError(t, err)
	require.Equal(t, txid, got.TxHash())

	_, err = c.Confirmations(chainhashOf(9))
	require.ErrorIs(t, err, ErrTxNotFound)
}

func TestMemoryChainRejects(t *testing.T) {
	c := NewMemoryChain()
	funded := c.Fund([]byte{txscript.OP_TRUE}, 1000)

	_, err := c.SendRawTransaction(spend(funded, 1001))
	require.ErrorIs(t, err, ErrValueOverflow)

	_, err = c.SendRawTransaction(spend(wire.OutPoint{Hash: chainhashOf(1)}, 1))
	require.ErrorIs(t, err, ErrMissingInput)

	_, err = c.SendRawTransaction(spend(funded, 500))
	require.NoError(t, err)
	_, err = c.SendRawTransaction(spend(funded, 400))
	require.ErrorIs(t, err, ErrDoubleSpend)

	_, err = c.SendRawTransaction(wire.NewMsgTx(2))
	require.ErrorIs(t, err, ErrEmptyTransaction)
}

func TestMempoolAcceptPackage(t *testing.T) {
	c := NewMemoryChain()
	funded := c.Fund([]byte{txscript.OP_TRUE}, 1000)

	first := spend(funded, 900)
	second := spend(wire.OutPoint{Hash: first.TxHash(), Index: 0}, 800)
	require.NoError(t, c.TestMempoolAccept([]*wire.MsgTx{first, second}))
	require.Error(t, c.TestMempoolAccept([]*wire.MsgTx{second, first}), "child before parent")
	require.ErrorIs(t, c.TestMempoolAccept([]*wire.MsgTx{first, spend(funded, 100)}), ErrDoubleSpend)
	require.ErrorIs(t, c.TestMempoolAccept([]*wire.MsgTx{first, spend(wire.OutPoint{Hash: first.TxHash()}, 901)}), ErrValueOverflow)

	// Nothing was added by the checks.
	_, err := c.GetRawTransaction(first.TxHash())
	require.ErrorIs(t, err, ErrTxNotFound)
	_, err = c.SendRawTransaction(first)
	require.NoError(t, err)
	_, err = c.SendRawTransaction(second)
	require.NoError(t, err)
	require.Equal(t, 2, c.Mine())
}

func TestAccountScriptPubkey(t *testing.T) {
	netKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	var xonly [32]byte
	copy(xonly[:], schnorr.SerializePubKey(netKey.PubKey()))

	var a, b common.Pubkey
	a[0], b[0] = 1, 2
	sa, err := AccountScriptPubkey(xonly, a)
	require.NoError(t, err)
	require.Len(t, sa, 34)
	require.Equal(t, byte(txscript.OP_1), sa[0])

	sb, _ := AccountScriptPubkey(xonly, b)
	require.NotEqual(t, sa, sb)

	require.True(t, OwnsScript(xonly, a, sa))
	require.False(t, OwnsScript(xonly, b, sa))
}

func TestSignInputs(t *testing.T) {
	netKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	var xonly [32]byte
	copy(xonly[:], schnorr.SerializePubKey(netKey.PubKey()))

	var acct, other common.Pubkey
	acct[0], other[0] = 1, 2
	script, err := AccountScriptPubkey(xonly, acct)
	require.NoError(t, err)

	c := NewMemoryChain()
	funded := c.Fund(script, 1000)
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&funded, nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, script))

	prevOuts, err := PrevOutputs(c, tx)
	require.NoError(t, err)
	require.Error(t, SignInputs(tx, prevOuts, []types.InputToSign{{Index: 0, Signer: other}}, netKey))
	require.Error(t, SignInputs(tx, prevOuts, []types.InputToSign{{Index: 3, Signer: acct}}, netKey))
	require.NoError(t, SignInputs(tx, prevOuts, []types.InputToSign{{Index: 0, Signer: acct}}, netKey))
	require.Len(t, tx.TxIn[0].Witness, 3)

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	vm, err := txscript.NewEngine(script, tx, 0, txscript.StandardVerifyFlags, nil,
		txscript.NewTxSigHashes(tx, fetcher), 1000, fetcher)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())

	// A signature from any other key fails the leaf's CHECKSIG.
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	forged := tx.Copy()
	leaf, err := AccountTapLeaf(xonly, acct)
	require.NoError(t, err)
	sig, err := txscript.RawTxInTapscriptSignature(forged, txscript.NewTxSigHashes(forged, fetcher), 0, 1000, script, leaf, txscript.SigHashDefault, otherKey)
	require.NoError(t, err)
	forged.TxIn[0].Witness[0] = sig
	vm, err = txscript.NewEngine(script, forged, 0, txscript.StandardVerifyFlags, nil,
		txscript.NewTxSigHashes(forged, fetcher), 1000, fetcher)
	require.NoError(t, err)
	require.Error(t, vm.Execute())
}

func chainhashOf(b byte) (h chainhash.Hash) {
	h[0] = b
	return h
}
