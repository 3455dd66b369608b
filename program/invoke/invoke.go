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

package invoke

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
)

// ErrBitcoinTxNotFound is returned when the host knows no transaction with the given id.
var ErrBitcoinTxNotFound = errors.New("bitcoin transaction not found")

// Invoke calls another program. Every account ix references must be among
// accounts; writable ones need exclusive access and read-only ones shared
// access, so a caller still holding a conflicting borrow fails with
// ErrAccountBorrowFailed before anything is dispatched. The callee's status
// is returned unchanged.
func Invoke(sys Syscalls, ix *types.Instruction, accounts []*account.AccountInfo) error {
	type access struct {
		info     *account.AccountInfo
		writable bool
	}
	var (
		order []common.Pubkey
		want  = make(map[common.Pubkey]*access)
	)
	for _, meta := range ix.Accounts {
		if a, ok := want[meta.Pubkey]; ok {
			a.writable = a.writable || meta.IsWritable
			continue
		}
		info := find(accounts, meta.Pubkey)
		if info == nil {
			return fmt.Errorf("%w: %s", program.ErrNotEnoughAccountKeys, meta.Pubkey)
		}
		want[meta.Pubkey] = &access{info: info, writable: meta.IsWritable}
		order = append(order, meta.Pubkey)
	}

	var releases []func()
	defer func() {
		for _, release := range releases {
			release()
		}
	}()
	for _, key := range order {
		a := want[key]
		var (
			release func()
			err     error
		)
		if a.writable {
			_, release, err = a.info.TryBorrowMutData()
		} else {
			_, release, err = a.info.TryBorrowData()
		}
		if err != nil {
			return err
		}
		releases = append(releases, release)
	}
	for _, release := range releases {
		release()
	}
	releases = nil

	return program.ErrorFromCode(sys.Invoke(ix, accounts))
}

func find(accounts []*account.AccountInfo, key common.Pubkey) *account.AccountInfo {
	for _, a := range accounts {
		if a.Key() == key {
			return a
		}
	}
	return nil
}

// SetReturnData publishes data for the caller of the current invocation.
func SetReturnData(sys Syscalls, data []byte) error {
	if len(data) > program.MaxReturnData {
		return fmt.Errorf("%w: %d > %d", program.ErrMaxReturnDataExceeded, len(data), program.MaxReturnData)
	}
	sys.SetReturnData(data)
	return nil
}

// GetReturnData returns the data the last callee published, if any.
func GetReturnData(sys Syscalls) (common.Pubkey, []byte, bool) {
	id, data := sys.GetReturnData()
	if len(data) == 0 {
		return id, nil, false
	}
	if len(data) > program.MaxReturnData {
		data = data[:program.MaxReturnData]
	}
	return id, data, true
}

// GetBitcoinTx fetches and decodes a transaction by display-order txid.
func GetBitcoinTx(sys Syscalls, txid [32]byte) (*wire.MsgTx, error) {
	raw := sys.GetBitcoinTx(txid)
	if raw == nil {
		return nil, fmt.Errorf("%w: %x", ErrBitcoinTxNotFound, txid)
	}
	if len(raw) > program.MaxBitcoinTxSize {
		return nil, fmt.Errorf("bitcoin transaction %x is %d bytes, limit %d", txid, len(raw), program.MaxBitcoinTxSize)
	}
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetNetworkXOnlyPubkey returns the key the network signs anchoring transactions with.
func GetNetworkXOnlyPubkey(sys Syscalls) [32]byte { return sys.GetNetworkXOnlyPubkey() }

// ValidateUtxoOwnership reports whether utxo is locked to the account owner.
func ValidateUtxoOwnership(sys Syscalls, utxo common.UtxoMeta, owner common.Pubkey) bool {
	return sys.ValidateUtxoOwnership(utxo, owner)
}

// GetAccountScriptPubkey returns the P2TR output script that anchors key.
func GetAccountScriptPubkey(sys Syscalls, key common.Pubkey) []byte {
	s := sys.GetAccountScriptPubkey(key)
	return s[:]
}

// Log emits a diagnostic line through the host.
func Log(sys Syscalls, format string, args ...interface{}) {
	sys.Log(fmt.Sprintf(format, args...))
}
