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

package program

// Limits shared by programs and the host. They are part of the binary
// interface and must not change.
const (
	// MaxPermittedDataLength is the largest account data size.
	MaxPermittedDataLength = 10 * 1024 * 1024
	// MaxPermittedDataIncrease is how far one invocation may grow an account
	// past its length at entry.
	MaxPermittedDataIncrease = 10 * 1024
	// BPFAlignOfU128 is the alignment of the owner field in the input buffer.
	BPFAlignOfU128 = 8
	// NonDupMarker tags an account slot that is not a duplicate.
	NonDupMarker = 0xff
	// MaxReturnData bounds the return data buffer.
	MaxReturnData = 1024
	// MaxBitcoinTxSize bounds a transaction fetched through GetBitcoinTx.
	MaxBitcoinTxSize = 1024
	// AccountScriptPubkeyLength is the size of a P2TR output script.
	AccountScriptPubkeyLength = 34
)
