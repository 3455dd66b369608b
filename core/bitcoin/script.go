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
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/program/invoke"
)

// AccountTapLeaf returns the single leaf of key's taproot script tree.
func AccountTapLeaf(networkKey [32]byte, key common.Pubkey) (txscript.TapLeaf, error) {
	script, err := invoke.CommitmentScript(networkKey, key)
	if err != nil {
		return txscript.TapLeaf{}, err
	}
	return txscript.NewBaseTapLeaf(script), nil
}

// AccountScriptPubkey returns the P2TR script anchoring key: the output key
// is the network key tweaked with a tree holding the account's commitment
// script as its only leaf.
func AccountScriptPubkey(networkKey [32]byte, key common.Pubkey) ([]byte, error) {
	internal, err := schnorr.ParsePubKey(networkKey[:])
	if err != nil {
		return nil, err
	}
	leaf, err := AccountTapLeaf(networkKey, key)
	if err != nil {
		return nil, err
	}
	root := leaf.TapHash()
	return txscript.PayToTaprootScript(txscript.ComputeTaprootOutputKey(internal, root[:]))
}

// OwnsScript reports whether pkScript is the P2TR script anchoring key.
func OwnsScript(networkKey [32]byte, key common.Pubkey, pkScript []byte) bool {
	script, err := AccountScriptPubkey(networkKey, key)
	return err == nil && bytes.Equal(script, pkScript)
}
