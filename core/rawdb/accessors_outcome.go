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
	"github.com/probeum/go-arch/core/types"
)

// ReadProcessedTransaction retrieves the outcome record of a runtime transaction.
func ReadProcessedTransaction(db KeyValueReader, txid common.Hash) *types.ProcessedTransaction {
	data, _ := db.Get(processedKey(txid))
	if len(data) == 0 {
		return nil
	}
	p, err := types.DecodeProcessedTransaction(data)
	if err != nil {
		log.Error("Invalid processed transaction", "txid", txid, "err", err)
		return nil
	}
	return p
}

// HasProcessedTransaction reports whether an outcome is stored for txid.
func HasProcessedTransaction(db KeyValueReader, txid common.Hash) bool {
	ok, _ := db.Has(processedKey(txid))
	return ok
}

// WriteProcessedTransaction stores the outcome record of a runtime transaction.
func WriteProcessedTransaction(db KeyValueWriter, txid common.Hash, p *types.ProcessedTransaction) {
	data, err := p.Serialize()
	if err != nil {
		log.Crit("Failed to encode processed transaction", "err", err)
	}
	if err := db.Put(processedKey(txid), data); err != nil {
		log.Crit("Failed to store processed transaction", "err", err)
	}
}

// AnchorRecord links a broadcast Bitcoin transaction back to the runtime
// transaction and instruction that requested it.
type AnchorRecord struct {
	Txid        common.Hash
	Instruction common.Hash
}

// ReadAnchor retrieves the origin of a Bitcoin transaction, or nil.
func ReadAnchor(db KeyValueReader, btcTxid common.Hash) *AnchorRecord {
	data, _ := db.Get(anchorKey(btcTxid))
	if len(data) == 0 {
		return nil
	}
	rec := new(AnchorRecord)
	if err := rlp.DecodeBytes(data, rec); err != nil {
		log.Error("Invalid anchor record", "txid", btcTxid, "err", err)
		return nil
	}
	return rec
}

// WriteAnchor stores the origin of a Bitcoin transaction.
func WriteAnchor(db KeyValueWriter, btcTxid common.Hash, rec *AnchorRecord) {
	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		log.Crit("Failed to RLP encode anchor", "err", err)
	}
	if err := db.Put(anchorKey(btcTxid), data); err != nil {
		log.Crit("Failed to store anchor", "err", err)
	}
}

// DeleteAnchor removes the origin record of a Bitcoin transaction.
func DeleteAnchor(db KeyValueWriter, btcTxid common.Hash) {
	if err := db.Delete(anchorKey(btcTxid)); err != nil {
		log.Crit("Failed to delete anchor", "err", err)
	}
}
