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

package rawdb

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/probeum/go-arch/common"
)

// AccountRecord is the stored form of an account.
type AccountRecord struct {
	Owner      common.Pubkey
	Utxo       common.UtxoMeta
	Data       []byte
	Executable bool
}

// ReadAccount retrieves the account stored under key, or nil.
func ReadAccount(db KeyValueReader, key common.Pubkey) *AccountRecord {
	data, _ := db.Get(accountKey(key))
	if len(data) == 0 {
		return nil
	}
	rec := new(AccountRecord)
	if err := rlp.DecodeBytes(data, rec); err != nil {
		log.Error("Invalid account record", "key", key, "err", err)
		return nil
	}
	return rec
}

// HasAccount reports whether an account is stored under key.
func HasAccount(db KeyValueReader, key common.Pubkey) bool {
	ok, _ := db.Has(accountKey(key))
	return ok
}

// WriteAccount stores the account under key.
func WriteAccount(db KeyValueWriter, key common.Pubkey, rec *AccountRecord) {
	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		log.Crit("Failed to RLP encode account", "err", err)
	}
	if err := db.Put(accountKey(key), data); err != nil {
		log.Crit("Failed to store account", "err", err)
	}
}

// DeleteAccount removes the account stored under key.
func DeleteAccount(db KeyValueWriter, key common.Pubkey) {
	if err := db.Delete(accountKey(key)); err != nil {
		log.Crit("Failed to delete account", "err", err)
	}
}
