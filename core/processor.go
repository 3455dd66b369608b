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

// Package core executes runtime transactions against the account state and
// anchors the resulting state transitions on Bitcoin.
package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/bitcoin"
	"github.com/probeum/go-arch/core/outcome"
	"github.com/probeum/go-arch/core/rawdb"
	"github.com/probeum/go-arch/core/state"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/crypto"
	"github.com/probeum/go-arch/program/entrypoint"
)

const (
	defaultBitcoinTxCacheSize = 128

	// maxInvokeDepth bounds nested program invocations.
	maxInvokeDepth = 4
)

var (
	ErrProgramRegistered = errors.New("program already registered")
	ErrMissingNetworkKey = errors.New("network key required")
	ErrMissingBackend    = errors.New("bitcoin backend required")
)

// Config wires a Processor to its collaborators.
type Config struct {
	NetworkKey         *btcec.PrivateKey
	Backend            bitcoin.Backend
	DB                 rawdb.KeyValueStore
	OutcomeCacheSize   int
	BitcoinTxCacheSize int
}

// pendingAnchor is a signed state transition waiting for confirmation.
type pendingAnchor struct {
	txid        common.Hash
	instruction common.Hash
	tx          *wire.MsgTx
}

// Processor is the in-process host: it owns the program registry, the account
// state and the outcome records, and talks to Bitcoin through a Backend.
type Processor struct {
	networkKey   *btcec.PrivateKey
	networkXOnly [32]byte
	backend      bitcoin.Backend

	state    *state.StateDB
	outcomes *outcome.Store
	txCache  *lru.Cache // chainhash.Hash -> raw transaction bytes

	programs    map[common.Pubkey]entrypoint.Handler
	pending     map[chainhash.Hash]pendingAnchor
	outstanding map[common.Hash]int
	unsent      []chainhash.Hash // pending anchors not yet accepted, in spend order

	mu  sync.Mutex
	log log.Logger
}

// NewProcessor creates a host over cfg.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.NetworkKey == nil {
		return nil, ErrMissingNetworkKey
	}
	if cfg.Backend == nil {
		return nil, ErrMissingBackend
	}
	db := cfg.DB
	if db == nil {
		db = rawdb.NewMemoryDatabase()
	}
	outcomes, err := outcome.NewStore(db, cfg.OutcomeCacheSize)
	if err != nil {
		return nil, err
	}
	size := cfg.BitcoinTxCacheSize
	if size <= 0 {
		size = defaultBitcoinTxCacheSize
	}
	txCache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		networkKey:   cfg.NetworkKey,
		networkXOnly: crypto.PubkeyOf(cfg.NetworkKey),
		backend:      cfg.Backend,
		state:        state.New(db),
		outcomes:     outcomes,
		txCache:      txCache,
		programs:     make(map[common.Pubkey]entrypoint.Handler),
		pending:      make(map[chainhash.Hash]pendingAnchor),
		outstanding:  make(map[common.Hash]int),
	}
	p.log = log.New("network", common.Pubkey(p.networkXOnly).TerminalString())
	return p, nil
}

// Register installs a program under id and marks its account executable.
func (p *Processor) Register(id common.Pubkey, h entrypoint.Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id.IsSystemProgram() {
		return fmt.Errorf("%w: %s is native", ErrProgramRegistered, id)
	}
	if _, ok := p.programs[id]; ok {
		return fmt.Errorf("%w: %s", ErrProgramRegistered, id)
	}
	if !p.state.Exist(id) {
		if err := p.state.CreateAccount(id, common.SystemProgram(), common.UtxoMeta{}); err != nil {
			return err
		}
	}
	if err := p.state.SetExecutable(id, true); err != nil {
		return err
	}
	p.state.Commit()
	p.programs[id] = h
	p.log.Info("Registered program", "id", id)
	return nil
}

// NetworkXOnlyPubkey is the key anchoring outputs are spendable by.
func (p *Processor) NetworkXOnlyPubkey() [32]byte { return p.networkXOnly }

// AccountScriptPubkey returns the P2TR script a client funds to create key.
func (p *Processor) AccountScriptPubkey(key common.Pubkey) ([]byte, error) {
	return bitcoin.AccountScriptPubkey(p.networkXOnly, key)
}

// GetAccount returns a copy of the committed account, or nil.
func (p *Processor) GetAccount(key common.Pubkey) *state.Account {
	return p.state.GetAccount(key)
}

// GetProcessedTransaction returns the outcome record of txid.
func (p *Processor) GetProcessedTransaction(txid common.Hash) (*types.ProcessedTransaction, error) {
	return p.outcomes.Get(txid)
}

// Process validates rtx, executes its instructions atomically and anchors
// the requested state transitions. A transaction that fails validation is
// rejected with an error and leaves no record; one that fails during
// execution is recorded as Failed and returns its id without error.
func (p *Processor) Process(rtx *types.RuntimeTransaction) (common.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validateTx(rtx); err != nil {
		return common.Hash{}, err
	}
	txid, err := p.outcomes.Begin(rtx)
	if err != nil {
		return txid, err
	}
	tc := newTxContext(txid, rtx.Message.Signers)

	snap := p.state.Snapshot()
	fail := func(err error) (common.Hash, error) {
		p.state.RevertToSnapshot(snap)
		p.log.Debug("Runtime transaction failed", "txid", txid, "err", err)
		return txid, p.outcomes.Finalize(txid, types.StatusFailed, err.Error())
	}
	for i, ix := range rtx.Message.Instructions {
		if err := p.executeInstruction(tc, ix); err != nil {
			return fail(fmt.Errorf("instruction %d: %w", i, err))
		}
	}
	if len(tc.anchors) > 0 {
		pkg := make([]*wire.MsgTx, len(tc.anchors))
		for i, a := range tc.anchors {
			pkg[i] = a.tx
		}
		if err := p.backend.TestMempoolAccept(pkg); err != nil {
			return fail(fmt.Errorf("anchor rejected: %w", err))
		}
	}
	p.state.Commit()

	if len(tc.anchors) == 0 {
		p.log.Debug("Runtime transaction processed", "txid", txid)
		return txid, p.outcomes.Finalize(txid, types.StatusProcessed, "")
	}
	for _, a := range tc.anchors {
		p.pending[a.hash] = pendingAnchor{txid: txid, instruction: a.instruction, tx: a.tx}
		p.unsent = append(p.unsent, a.hash)
	}
	p.outstanding[txid] = len(tc.anchors)
	p.broadcast()
	p.log.Debug("Runtime transaction awaiting anchors", "txid", txid, "anchors", len(tc.anchors))
	return txid, nil
}

// broadcast sends the unsent anchors in order. The state already binds
// accounts to their outputs, so an anchor the backend refuses stays queued,
// together with everything after it, and is retried by SyncConfirmations.
func (p *Processor) broadcast() {
	for len(p.unsent) > 0 {
		hash := p.unsent[0]
		if _, err := p.backend.SendRawTransaction(p.pending[hash].tx); err != nil {
			p.log.Warn("Anchor broadcast failed", "btctx", hash, "queued", len(p.unsent), "err", err)
			return
		}
		p.unsent = p.unsent[1:]
	}
}

func (p *Processor) sent(hash chainhash.Hash) bool {
	for _, h := range p.unsent {
		if h == hash {
			return false
		}
	}
	return true
}

// SyncConfirmations retries anchors the backend has not accepted yet. It
// then records the confirmed ones and finalizes transactions with no anchor
// left outstanding, returning how many it finalized.
func (p *Processor) SyncConfirmations() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.broadcast()
	finalized := 0
	for hash, pa := range p.pending {
		if !p.sent(hash) {
			continue
		}
		conf, err := p.backend.Confirmations(hash)
		if err != nil {
			return finalized, err
		}
		if conf == 0 {
			continue
		}
		if err := p.outcomes.RecordAnchor(pa.txid, pa.instruction, common.Hash(common.ReverseTxid(hash))); err != nil {
			return finalized, err
		}
		delete(p.pending, hash)
		if p.outstanding[pa.txid]--; p.outstanding[pa.txid] > 0 {
			continue
		}
		delete(p.outstanding, pa.txid)
		if err := p.outcomes.Finalize(pa.txid, types.StatusProcessed, ""); err != nil {
			return finalized, err
		}
		finalized++
	}
	return finalized, nil
}

// PrevOutput resolves an outpoint through the backend.
func (p *Processor) PrevOutput(op wire.OutPoint) (*wire.TxOut, error) {
	tx, err := p.backend.GetRawTransaction(op.Hash)
	if err != nil {
		return nil, err
	}
	if int(op.Index) >= len(tx.TxOut) {
		return nil, fmt.Errorf("%w: %s", bitcoin.ErrMissingInput, op)
	}
	return tx.TxOut[op.Index], nil
}
