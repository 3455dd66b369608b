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
	"fmt"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/rawdb"
)

// Account is a detached copy of an account's state.
type Account struct {
	Key        common.Pubkey
	Owner      common.Pubkey
	Utxo       common.UtxoMeta
	Data       []byte
	Executable bool
}

func (a *Account) String() string {
	return fmt.Sprintf("Account{key: %s, owner: %s, utxo: %s, executable: %t, data_len: %d}",
		a.Key, a.Owner, a.Utxo, a.Executable, len(a.Data))
}

// stateObject represents an account which is being modified.
//
// The usage pattern is as follows:
// First you need to obtain a state object.
// Account values can be accessed and modified through the object.
// Finally, call Commit on the StateDB to write the modified accounts to the database.
type stateObject struct {
	key  common.Pubkey
	db   *StateDB
	data rawdb.AccountRecord
}

func newObject(db *StateDB, key common.Pubkey, data rawdb.AccountRecord) *stateObject {
	return &stateObject{key: key, db: db, data: data}
}

func (s *stateObject) account() *Account {
	return &Account{
		Key:        s.key,
		Owner:      s.data.Owner,
		Utxo:       s.data.Utxo,
		Data:       common.CopyBytes(s.data.Data),
		Executable: s.data.Executable,
	}
}

func (s *stateObject) SetData(data []byte) {
	s.db.journal.append(dataChange{
		account: &s.key,
		prev:    s.data.Data,
	})
	s.setData(common.CopyBytes(data))
}

func (s *stateObject) setData(data []byte) {
	s.data.Data = data
}

func (s *stateObject) SetOwner(owner common.Pubkey) {
	s.db.journal.append(ownerChange{
		account: &s.key,
		prev:    s.data.Owner,
	})
	s.setOwner(owner)
}

func (s *stateObject) setOwner(owner common.Pubkey) {
	s.data.Owner = owner
}

func (s *stateObject) SetUtxo(utxo common.UtxoMeta) {
	s.db.journal.append(utxoChange{
		account: &s.key,
		prev:    s.data.Utxo,
	})
	s.setUtxo(utxo)
}

func (s *stateObject) setUtxo(utxo common.UtxoMeta) {
	s.data.Utxo = utxo
}

func (s *stateObject) SetExecutable(executable bool) {
	s.db.journal.append(executableChange{
		account: &s.key,
		prev:    s.data.Executable,
	})
	s.setExecutable(executable)
}

func (s *stateObject) setExecutable(executable bool) {
	s.data.Executable = executable
}
