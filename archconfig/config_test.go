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

package archconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadConfig(t *testing.T) {
	file := writeFile(t, `
Network = "signet"
LogLevel = "debug"
OutcomeCacheSize = 16

[Poll]
MaxRetries = 3
`)
	cfg := Defaults
	require.NoError(t, LoadConfig(file, &cfg))
	assert.Equal(t, "signet", cfg.Network)
	assert.Equal(t, 16, cfg.OutcomeCacheSize)
	assert.Equal(t, 3, cfg.Poll.MaxRetries)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, Defaults.BitcoinTxCacheSize, cfg.BitcoinTxCacheSize)
	assert.Equal(t, Defaults.Poll.InitialInterval, cfg.Poll.InitialInterval)

	require.NoError(t, cfg.Validate())
	params, err := cfg.NetParams()
	require.NoError(t, err)
	assert.Equal(t, &chaincfg.SigNetParams, params)
	lvl, err := cfg.Verbosity()
	require.NoError(t, err)
	assert.Equal(t, log.LvlDebug, lvl)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := writeFile(t, "Netwrok = \"regtest\"\n")
	cfg := Defaults
	err := LoadConfig(file, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Netwrok")
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Defaults
	cfg.Poll.MaxInterval = 3 * time.Second
	out, err := Marshal(&cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, LoadConfig(writeFile(t, string(out)), &back))
	assert.Equal(t, cfg, back)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		network, level string
		ok             bool
	}{
		{"mainnet", "info", true},
		{"testnet3", "trace", true},
		{"regtest", "crit", true},
		{"litecoin", "info", false},
		{"regtest", "loud", false},
	}
	for _, tt := range tests {
		cfg := Defaults
		cfg.Network, cfg.LogLevel = tt.network, tt.level
		if err := cfg.Validate(); (err == nil) != tt.ok {
			t.Errorf("network %q level %q: err %v, want ok=%v", tt.network, tt.level, err, tt.ok)
		}
	}
	assert.Contains(t, Defaults.DatabasePath(), filepath.Join("regtest", "chaindata"))
}
