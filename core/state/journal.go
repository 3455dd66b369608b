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

package state

import (
	"github.com/probeum/go-arch/common"
)

// journalEntry is a modification entry in the state change journal that can be
// reverted on demand.
type journalEntry interface {
	// revert undoes the changes introduced by this journal entry.
	revert(*StateDB)

	// dirtied returns the account modified by this journal entry.
	dirtied() *common.Pubkey
}

// journal contains the list of state modifications applied since the last state
// commit. These are tracked to be able to be reverted in case of a failed
// transaction.
type journal struct {
	entries []journalEntry        // Current changes tracked by the journal
	dirties map[common.Pubkey]int // Dirty accounts and the number of changes
}

// newJournal create a new initialized journal.
func newJournal() *journal {
	return &journal{
		dirties: make(map[common.Pubkey]int),
	}
}

// append inserts a new modification entry to the end of the change journal.
func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
	if key := entry.dirtied(); key != nil {
		j.dirties[*key]++
	}
}

// revert undoes a batch of journalled modifications along with any reverted
// dirty handling too.
func (j *journal) revert(statedb *StateDB, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(statedb)

		if key := j.entries[i].dirtied(); key != nil {
			if j.dirties[*key]--; j.dirties[*key] == 0 {
				delete(j.dirties, *key)
			}
		}
	}
	j.entries = j.entries[:snapshot]
}

// length returns the current number of entries in the journal.
func (j *journal) length() int {
	return len(j.entries)
}

type (
	createObjectChange struct {
		account *common.Pubkey
	}
	dataChange struct {
		account *common.Pubkey
		prev    []byte
	}
	ownerChange struct {
		account *common.Pubkey
		prev    common.Pubkey
	}
	utxoChange struct {
		account *common.Pubkey
		prev    common.UtxoMeta
	}
	executableChange struct {
		account *common.Pubkey
		prev    bool
	}
)

func (ch createObjectChange) revert(s *StateDB) {
	delete(s.objects, *ch.account)
}

func (ch createObjectChange) dirtied() *common.Pubkey {
	return ch.account
}

func (ch dataChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setData(ch.prev)
}

func (ch dataChange) dirtied() *common.Pubkey {
	return ch.account
}

func (ch ownerChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setOwner(ch.prev)
}

func (ch ownerChange) dirtied() *common.Pubkey {
	return ch.account
}

func (ch utxoChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setUtxo(ch.prev)
}

func (ch utxoChange) dirtied() *common.Pubkey {
	return ch.account
}

func (ch executableChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setExecutable(ch.prev)
}

func (ch executableChange) dirtied() *common.Pubkey {
	return ch.account
}
