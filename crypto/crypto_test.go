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

package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

var testPrivHex = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"

func TestSignVerify(t *testing.T) {
	key, err := HexToPrivateKey(testPrivHex)
	require.NoError(t, err)
	pub := PubkeyOf(key)

	digest := chainhash.DoubleHashB([]byte("message"))
	sig, err := Sign(digest, key)
	require.NoError(t, err)
	require.True(t, VerifySignature(pub, digest, sig))

	digest[0] ^= 1
	require.False(t, VerifySignature(pub, digest, sig))

	_, err = Sign(digest[:31], key)
	require.Error(t, err)
}

func TestInvalidKeys(t *testing.T) {
	tests := []string{
		"",
		"zz9c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	}
	for _, k := range tests {
		if _, err := HexToPrivateKey(k); err == nil {
			t.Errorf("key %q accepted", k)
		}
	}
}

func TestLoadSaveKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "key")
	require.NoError(t, SaveKey(file, key))
	loaded, err := LoadKey(file)
	require.NoError(t, err)
	require.Equal(t, PubkeyOf(key), PubkeyOf(loaded))

	require.NoError(t, os.WriteFile(file, []byte(testPrivHex+"\n\n\nx"), 0600))
	_, err = LoadKey(file)
	require.Error(t, err)
}
