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

// Package state provides the host's journalled account store.
package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/rawdb"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
)

type revision struct {
	id           int
	journalIndex int
}

// StateDB caches accounts loaded from the database, journals every change so
// a failed transaction can be rolled back, and writes the survivors out on
// Commit.
type StateDB struct {
	db      rawdb.KeyValueStore
	objects map[common.Pubkey]*stateObject

	journal        *journal
	validRevisions []revision
	nextRevisionId int

	lock sync.Mutex
}

// New creates a state over db.
func New(db rawdb.KeyValueStore) *StateDB {
	return &StateDB{
		db:      db,
		objects: make(map[common.Pubkey]*stateObject),
		journal: newJournal(),
	}
}

func (s *StateDB) getStateObject(key common.Pubkey) *stateObject {
	if obj := s.objects[key]; obj != nil {
		return obj
	}
	rec := rawdb.ReadAccount(s.db, key)
	if rec == nil {
		return nil
	}
	obj := newObject(s, key, *rec)
	s.objects[key] = obj
	return obj
}

// Exist reports whether the account exists.
func (s *StateDB) Exist(key common.Pubkey) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.getStateObject(key) != nil
}

// GetAccount returns a copy of the account, or nil if it does not exist.
func (s *StateDB) GetAccount(key common.Pubkey) *Account {
	s.lock.Lock()
	defer s.lock.Unlock()
	if obj := s.getStateObject(key); obj != nil {
		return obj.account()
	}
	return nil
}

// CreateAccount adds an empty account anchored to utxo.
func (s *StateDB) CreateAccount(key, owner common.Pubkey, utxo common.UtxoMeta) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.getStateObject(key) != nil {
		return fmt.Errorf("%w: %s", ErrAccountExists, key)
	}
	s.journal.append(createObjectChange{account: &key})
	s.objects[key] = newObject(s, key, rawdb.AccountRecord{Owner: owner, Utxo: utxo})
	return nil
}

func (s *StateDB) modify(key common.Pubkey, fn func(*stateObject)) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	obj := s.getStateObject(key)
	if obj == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	fn(obj)
	return nil
}

// SetData replaces the account data.
func (s *StateDB) SetData(key common.Pubkey, data []byte) error {
	return s.modify(key, func(obj *stateObject) { obj.SetData(data) })
}

// SetOwner hands the account to another program.
func (s *StateDB) SetOwner(key, owner common.Pubkey) error {
	return s.modify(key, func(obj *stateObject) { obj.SetOwner(owner) })
}

// SetUtxo rebinds the account to another output.
func (s *StateDB) SetUtxo(key common.Pubkey, utxo common.UtxoMeta) error {
	return s.modify(key, func(obj *stateObject) { obj.SetUtxo(utxo) })
}

// SetExecutable marks the account as holding a program.
func (s *StateDB) SetExecutable(key common.Pubkey, executable bool) error {
	return s.modify(key, func(obj *stateObject) { obj.SetExecutable(executable) })
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	id := s.nextRevisionId
	s.nextRevisionId++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	// Find the snapshot in the stack of valid snapshots.
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	// Replay the journal to undo changes and remove invalidated snapshots
	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// Commit writes every dirty account to the database and clears the journal.
// It returns the number of accounts written.
func (s *StateDB) Commit() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys := make([]common.Pubkey, 0, len(s.journal.dirties))
	for key := range s.journal.dirties {
		keys = append(keys, key)
	}
	for _, key := range keys {
		if obj := s.objects[key]; obj != nil {
			rawdb.WriteAccount(s.db, key, &obj.data)
		}
	}
	s.journal = newJournal()
	s.validRevisions = s.validRevisions[:0]
	log.Debug("Committed state", "accounts", len(keys))
	return len(keys)
}
