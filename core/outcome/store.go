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

// Package outcome tracks the lifecycle of submitted runtime transactions.
package outcome

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/rawdb"
	"github.com/probeum/go-arch/core/types"
)

const defaultCacheSize = 256

var (
	// ErrNotFound is returned for transaction ids the store has never seen.
	ErrNotFound = errors.New("processed transaction not found")

	// ErrAlreadyFinalized is returned when a terminal record would change.
	ErrAlreadyFinalized = errors.New("processed transaction already finalized")

	// ErrAlreadyExists is returned by Begin for a known transaction id.
	ErrAlreadyExists = errors.New("processed transaction already exists")

	errNotTerminal = errors.New("finalize requires a terminal status")
)

// Store keeps ProcessedTransaction records in the database with a cache of
// recently touched records in front.
type Store struct {
	db    rawdb.KeyValueStore
	cache *lru.ARCCache
	mu    sync.Mutex
}

// NewStore creates a store. A non-positive cacheSize selects the default.
func NewStore(db rawdb.KeyValueStore, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

func (s *Store) load(txid common.Hash) *types.ProcessedTransaction {
	if cached, ok := s.cache.Get(txid); ok {
		return cached.(*types.ProcessedTransaction)
	}
	p := rawdb.ReadProcessedTransaction(s.db, txid)
	if p != nil {
		s.cache.Add(txid, p)
	}
	return p
}

func (s *Store) store(txid common.Hash, p *types.ProcessedTransaction) {
	rawdb.WriteProcessedTransaction(s.db, txid, p)
	s.cache.Add(txid, p)
}

// Begin records rtx in the Processing state and returns its id.
func (s *Store) Begin(rtx *types.RuntimeTransaction) (common.Hash, error) {
	txid, err := rtx.Txid()
	if err != nil {
		return common.Hash{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.load(txid) != nil {
		return txid, fmt.Errorf("%w: %s", ErrAlreadyExists, txid)
	}
	s.store(txid, types.NewProcessedTransaction(rtx))
	log.Debug("Runtime transaction processing", "txid", txid)
	return txid, nil
}

// RecordAnchor appends btcTxid to the anchors caused by the instruction.
func (s *Store) RecordAnchor(txid, instruction, btcTxid common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.load(txid)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, txid)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyFinalized, txid, p.Status)
	}
	for _, id := range p.BitcoinTxids[instruction] {
		if id == btcTxid {
			return nil
		}
	}
	next := p.Copy()
	next.BitcoinTxids[instruction] = append(next.BitcoinTxids[instruction], btcTxid)
	s.store(txid, next)
	rawdb.WriteAnchor(s.db, btcTxid, &rawdb.AnchorRecord{Txid: txid, Instruction: instruction})
	return nil
}

// Finalize moves the record into a terminal status. The reason is kept only
// for failures.
func (s *Store) Finalize(txid common.Hash, status types.Status, reason string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %s", errNotTerminal, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.load(txid)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, txid)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyFinalized, txid, p.Status)
	}
	next := p.Copy()
	next.Status = status
	if status == types.StatusFailed {
		next.FailureReason = reason
	}
	s.store(txid, next)
	log.Debug("Runtime transaction finalized", "txid", txid, "status", status, "anchors", len(next.AllBitcoinTxids()))
	return nil
}

// Get returns a copy of the record for txid.
func (s *Store) Get(txid common.Hash) (*types.ProcessedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.load(txid)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txid)
	}
	return p.Copy(), nil
}

// GetProcessedTransaction is Get under the name the client reader expects.
func (s *Store) GetProcessedTransaction(txid common.Hash) (*types.ProcessedTransaction, error) {
	return s.Get(txid)
}

// Origin returns the runtime transaction and instruction that caused a
// confirmed anchor.
func (s *Store) Origin(btcTxid common.Hash) (txid, instruction common.Hash, err error) {
	rec := rawdb.ReadAnchor(s.db, btcTxid)
	if rec == nil {
		return txid, instruction, fmt.Errorf("%w: anchor %s", ErrNotFound, btcTxid)
	}
	return rec.Txid, rec.Instruction, nil
}
