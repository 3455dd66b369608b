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

// Package invoke holds the program side of the host interface: nested
// program calls, return data, Bitcoin lookups and the UTXO state-transition
// protocol.
package invoke

import (
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
)

// Syscalls is the surface the host exposes to a running program. Status
// codes follow program.ErrorCode.
type Syscalls interface {
	// Invoke runs ix in a nested invocation over the caller's views and
	// reflects the callee's changes back into them.
	Invoke(ix *types.Instruction, accounts []*account.AccountInfo) uint64
	// SetTransactionToSign records a signing request. anchored lists, in
	// output order, the accounts whose UTXO moves to the new transaction.
	SetTransactionToSign(payload []byte, anchored []common.Pubkey) uint64

	SetReturnData(data []byte)
	GetReturnData() (common.Pubkey, []byte)

	// GetBitcoinTx returns the serialized transaction or nil if unknown.
	GetBitcoinTx(txid [32]byte) []byte
	GetNetworkXOnlyPubkey() [32]byte
	ValidateUtxoOwnership(utxo common.UtxoMeta, owner common.Pubkey) bool
	GetAccountScriptPubkey(key common.Pubkey) [program.AccountScriptPubkeyLength]byte

	Log(msg string)
}
