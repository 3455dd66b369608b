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

package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/probeum/go-arch/core/types"
)

// PrevOutputSource resolves the outputs spent by a transaction.
type PrevOutputSource interface {
	PrevOutput(op wire.OutPoint) (*wire.TxOut, error)
}

// PrevOutputs collects the outputs every input of tx spends.
func PrevOutputs(src PrevOutputSource, tx *wire.MsgTx) (map[wire.OutPoint]*wire.TxOut, error) {
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(tx.TxIn))
	for _, in := range tx.TxIn {
		out, err := src.PrevOutput(in.PreviousOutPoint)
		if err != nil {
			return nil, err
		}
		prevOuts[in.PreviousOutPoint] = out
	}
	return prevOuts, nil
}

// SignInputs completes each listed input of tx with a script-path spend of
// the signer's account output, signed by the network key.
func SignInputs(tx *wire.MsgTx, prevOuts map[wire.OutPoint]*wire.TxOut, inputs []types.InputToSign, key *btcec.PrivateKey) error {
	var networkKey [32]byte
	copy(networkKey[:], schnorr.SerializePubKey(key.PubKey()))

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for _, in := range inputs {
		if int(in.Index) >= len(tx.TxIn) {
			return fmt.Errorf("input %d out of range, transaction has %d", in.Index, len(tx.TxIn))
		}
		prev := prevOuts[tx.TxIn[in.Index].PreviousOutPoint]
		if prev == nil || !OwnsScript(networkKey, in.Signer, prev.PkScript) {
			return fmt.Errorf("input %d does not spend an output of %s", in.Index, in.Signer)
		}
		leaf, err := AccountTapLeaf(networkKey, in.Signer)
		if err != nil {
			return err
		}
		sig, err := txscript.RawTxInTapscriptSignature(tx, sigHashes, int(in.Index), prev.Value, prev.PkScript, leaf, txscript.SigHashDefault, key)
		if err != nil {
			return err
		}
		control := txscript.AssembleTaprootScriptTree(leaf).LeafMerkleProofs[0].ToControlBlock(key.PubKey())
		controlBytes, err := control.ToBytes()
		if err != nil {
			return err
		}
		tx.TxIn[in.Index].Witness = wire.TxWitness{sig, leaf.Script, controlBytes}
	}
	return nil
}
