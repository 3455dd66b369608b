// Copyright 2024 The go-probeum Authors
// This file is part of go-probeum.
//
// go-probeum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-probeum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-probeum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/probeum/go-arch/archconfig"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	return newApp().Run(append([]string{"archtool", "--verbosity", "0"}, args...))
}

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	require.NoError(t, run(t, "--network", "signet", "--datadir", dir, "dumpconfig", file))

	var cfg archconfig.Config
	require.NoError(t, archconfig.LoadConfig(file, &cfg))
	assert.Equal(t, "signet", cfg.Network)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "crit", cfg.LogLevel)

	// The dumped file is accepted back as --config.
	require.NoError(t, run(t, "--config", file, "dumpconfig", filepath.Join(dir, "again.toml")))
}

func TestUnknownNetwork(t *testing.T) {
	assert.Error(t, run(t, "--network", "dogecoin", "dumpconfig", filepath.Join(t.TempDir(), "x.toml")))
}

func TestTxidAndDecode(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.PubkeyOf(key)
	msg := &types.Message{
		Signers:      []common.Pubkey{pub},
		Instructions: []*types.Instruction{types.NewAssignInstruction(pub, common.Pubkey{1})},
	}
	rtx, err := types.NewRuntimeTransaction(0, msg, []*btcec.PrivateKey{key})
	require.NoError(t, err)
	enc, err := rtx.Serialize()
	require.NoError(t, err)

	require.NoError(t, run(t, "txid", hex.EncodeToString(enc)))
	require.NoError(t, run(t, "decode", "0x"+hex.EncodeToString(enc)))
	assert.Error(t, run(t, "txid", "zz"))
	assert.Error(t, run(t, "decode", hex.EncodeToString(enc[:len(enc)-1])))
}

func TestSimulate(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "netkey")
	require.NoError(t, run(t, "--datadir", dir, "simulate", "--count", "2", "--anchor", "--persist", "--netkey", keyFile))

	// The generated network key was saved and loads back.
	_, err := os.Stat(keyFile)
	require.NoError(t, err)
	_, err = crypto.LoadKey(keyFile)
	require.NoError(t, err)

	require.NoError(t, run(t, "simulate", "--count", "1"))
}
