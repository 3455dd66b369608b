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
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
)

// CommitmentScript is the tapscript leaf of an account's P2TR output. It
// commits to the account identifier and is spendable by the network key:
//
//	<network key> OP_CHECKSIG OP_IF <account key> OP_ENDIF
func CommitmentScript(networkKey [32]byte, key common.Pubkey) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(networkKey[:]).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_IF).
		AddData(key[:]).
		AddOp(txscript.OP_ENDIF).
		Script()
}

// AnchoredAccounts returns the writable accounts without duplicates, in slot
// order. This is the output order of a state-transition transaction.
func AnchoredAccounts(accounts []*account.AccountInfo) []*account.AccountInfo {
	var out []*account.AccountInfo
	seen := make(map[common.Pubkey]bool)
	for _, a := range accounts {
		if !a.IsWritable || seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	return out
}

// StateTransitionTx builds the unsigned transaction moving every writable
// account to a fresh output: version 2, locktime 0, one input spending each
// account's current UTXO and one output per account, paying the prior value
// to the account script.
func StateTransitionTx(sys Syscalls, accounts []*account.AccountInfo) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)
	tx.LockTime = 0
	for _, a := range AnchoredAccounts(accounts) {
		if err := AddStateTransition(sys, tx, a); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// AddStateTransition appends the input/output pair moving a to tx.
func AddStateTransition(sys Syscalls, tx *wire.MsgTx, a *account.AccountInfo) error {
	utxo := a.Utxo()
	prev, err := GetBitcoinTx(sys, utxo.Txid())
	if err != nil {
		return err
	}
	if int(utxo.Vout()) >= len(prev.TxOut) {
		return fmt.Errorf("%w: %s has %d outputs", program.ErrInvalidUtxo, utxo, len(prev.TxOut))
	}
	op := utxo.OutPoint()
	in := wire.NewTxIn(&op, nil, nil)
	in.Sequence = wire.MaxTxInSequenceNum
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(prev.TxOut[utxo.Vout()].Value, GetAccountScriptPubkey(sys, a.Key())))
	return nil
}

// SetTransactionToSign asks the host to sign and broadcast tx. On success
// the host rebinds each writable account to output i of the new transaction,
// i being its position among the writable accounts. The rebinding is visible
// to later invocations, not to the current one.
func SetTransactionToSign(sys Syscalls, accounts []*account.AccountInfo, tx *wire.MsgTx, inputs []types.InputToSign) error {
	var raw bytes.Buffer
	if err := tx.Serialize(&raw); err != nil {
		return err
	}
	payload, err := (&types.TransactionToSign{TxBytes: raw.Bytes(), InputsToSign: inputs}).Serialize()
	if err != nil {
		return fmt.Errorf("%w: %v", program.ErrTransactionToSignTooLarge, err)
	}
	var anchored []common.Pubkey
	for _, a := range AnchoredAccounts(accounts) {
		anchored = append(anchored, a.Key())
	}
	return program.ErrorFromCode(sys.SetTransactionToSign(payload, anchored))
}
