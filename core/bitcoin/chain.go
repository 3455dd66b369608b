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

// Package bitcoin is the host's view of the Bitcoin network: a backend
// interface, an in-memory implementation and the scripts that anchor
// accounts to outputs.
package bitcoin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrTxNotFound       = errors.New("bitcoin transaction not found")
	ErrMissingInput     = errors.New("transaction spends an unknown output")
	ErrDoubleSpend      = errors.New("transaction spends an already spent output")
	ErrValueOverflow    = errors.New("transaction outputs exceed inputs")
	ErrEmptyTransaction = errors.New("transaction has no inputs or outputs")
)

// Backend is what the host needs from a Bitcoin node.
type Backend interface {
	GetRawTransaction(txid chainhash.Hash) (*wire.MsgTx, error)
	SendRawTransaction(tx *wire.MsgTx) (chainhash.Hash, error)
	// TestMempoolAccept checks that txs, in order, would all be accepted.
	TestMempoolAccept(txs []*wire.MsgTx) error
	// Confirmations returns 0 for a transaction still in the mempool.
	Confirmations(txid chainhash.Hash) (int64, error)
}

type chainTx struct {
	tx     *wire.MsgTx
	height int64 // 0 while in the mempool
}

// MemoryChain is an in-process Backend. Transactions are accepted into a
// mempool after input checks and confirmed by Mine. Scripts are not executed.
type MemoryChain struct {
	mu     sync.RWMutex
	txs    map[chainhash.Hash]*chainTx
	spent  mapset.Set // of wire.OutPoint
	height int64
	nonce  uint32
}

// NewMemoryChain returns an empty chain.
func NewMemoryChain() *MemoryChain {
	return &MemoryChain{
		txs:   make(map[chainhash.Hash]*chainTx),
		spent: mapset.NewSet(),
	}
}

// Fund mints a confirmed output of value locked by pkScript.
func (c *MemoryChain) Fund(pkScript []byte, value btcutil.Amount) wire.OutPoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nonce++
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, c.nonce), nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(value), pkScript))

	c.height++
	hash := tx.TxHash()
	c.txs[hash] = &chainTx{tx: tx, height: c.height}
	log.Debug("Funded output", "txid", hash, "value", value)
	return wire.OutPoint{Hash: hash, Index: 0}
}

// GetRawTransaction implements Backend.
func (c *MemoryChain) GetRawTransaction(txid chainhash.Hash) (*wire.MsgTx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.txs[txid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	return e.tx.Copy(), nil
}

// PrevOutput returns the output op refers to.
func (c *MemoryChain) PrevOutput(op wire.OutPoint) (*wire.TxOut, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prevOutput(op)
}

func (c *MemoryChain) prevOutput(op wire.OutPoint) (*wire.TxOut, error) {
	e, ok := c.txs[op.Hash]
	if !ok || int(op.Index) >= len(e.tx.TxOut) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, op)
	}
	return e.tx.TxOut[op.Index], nil
}

// SendRawTransaction implements Backend.
func (c *MemoryChain) SendRawTransaction(tx *wire.MsgTx) (chainhash.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := tx.TxHash()
	if _, ok := c.txs[hash]; ok {
		return hash, nil
	}
	fee, err := c.checkTx(tx, nil, c.spent)
	if err != nil {
		return hash, err
	}
	for _, txin := range tx.TxIn {
		c.spent.Add(txin.PreviousOutPoint)
	}
	c.txs[hash] = &chainTx{tx: tx.Copy()}
	log.Debug("Accepted bitcoin transaction", "txid", hash, "inputs", len(tx.TxIn), "outputs", len(tx.TxOut), "fee", fee)
	return hash, nil
}

// TestMempoolAccept implements Backend. Later transactions of the package
// may spend outputs of earlier ones. Nothing is added to the mempool.
func (c *MemoryChain) TestMempoolAccept(txs []*wire.MsgTx) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pkg := make(map[chainhash.Hash]*wire.MsgTx, len(txs))
	spent := c.spent.Clone()
	for i, tx := range txs {
		hash := tx.TxHash()
		if _, ok := c.txs[hash]; ok {
			continue
		}
		if _, err := c.checkTx(tx, pkg, spent); err != nil {
			return fmt.Errorf("package transaction %d (%s): %w", i, hash, err)
		}
		for _, txin := range tx.TxIn {
			spent.Add(txin.PreviousOutPoint)
		}
		pkg[hash] = tx
	}
	return nil
}

// checkTx validates the inputs and value of tx against the chain, the
// unbroadcast package pkg and the spent set. It returns the fee.
func (c *MemoryChain) checkTx(tx *wire.MsgTx, pkg map[chainhash.Hash]*wire.MsgTx, spent mapset.Set) (btcutil.Amount, error) {
	if len(tx.TxIn) == 0 || len(tx.TxOut) == 0 {
		return 0, ErrEmptyTransaction
	}
	var in, out btcutil.Amount
	for _, txin := range tx.TxIn {
		op := txin.PreviousOutPoint
		var prev *wire.TxOut
		if ptx, ok := pkg[op.Hash]; ok && int(op.Index) < len(ptx.TxOut) {
			prev = ptx.TxOut[op.Index]
		} else {
			var err error
			if prev, err = c.prevOutput(op); err != nil {
				return 0, err
			}
		}
		if spent.Contains(op) {
			return 0, fmt.Errorf("%w: %s", ErrDoubleSpend, op)
		}
		in += btcutil.Amount(prev.Value)
	}
	for _, txout := range tx.TxOut {
		out += btcutil.Amount(txout.Value)
	}
	if out > in {
		return 0, fmt.Errorf("%w: %v > %v", ErrValueOverflow, out, in)
	}
	return in - out, nil
}

// Confirmations implements Backend.
func (c *MemoryChain) Confirmations(txid chainhash.Hash) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.txs[txid]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	if e.height == 0 {
		return 0, nil
	}
	return c.height - e.height + 1, nil
}

// Mine confirms every mempool transaction in a new block and returns how many there were.
func (c *MemoryChain) Mine() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.height++
	var n int
	for _, e := range c.txs {
		if e.height == 0 {
			e.height = c.height
			n++
		}
	}
	log.Debug("Mined block", "height", c.height, "txs", n)
	return n
}

// Height returns the current tip height.
func (c *MemoryChain) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}
