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

// Package archconfig contains the configuration of the runtime host.
package archconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"time"
	"unicode"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"github.com/probeum/go-arch/client"
)

// Config is the host configuration. Field names double as TOML keys.
type Config struct {
	DataDir string
	// Network is one of mainnet, testnet3, regtest or signet.
	Network  string
	LogLevel string

	DatabaseCache   int
	DatabaseHandles int

	OutcomeCacheSize   int
	BitcoinTxCacheSize int

	Poll client.PollConfig
}

// Defaults contains default settings for a local regtest host.
var Defaults = Config{
	Network:            "regtest",
	LogLevel:           "info",
	DatabaseCache:      64,
	DatabaseHandles:    64,
	OutcomeCacheSize:   256,
	BitcoinTxCacheSize: 128,
	Poll: client.PollConfig{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxRetries:      30,
	},
}

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		if user, err := user.Current(); err == nil {
			home = user.HomeDir
		}
	}
	if runtime.GOOS == "darwin" {
		Defaults.DataDir = filepath.Join(home, "Library", "Arch")
	} else if runtime.GOOS == "windows" {
		localappdata := os.Getenv("LOCALAPPDATA")
		if localappdata != "" {
			Defaults.DataDir = filepath.Join(localappdata, "Arch")
		} else {
			Defaults.DataDir = filepath.Join(home, "AppData", "Local", "Arch")
		}
	} else {
		Defaults.DataDir = filepath.Join(home, ".arch")
	}
}

var ErrUnknownNetwork = errors.New("unknown bitcoin network")

var networks = map[string]*chaincfg.Params{
	chaincfg.MainNetParams.Name:       &chaincfg.MainNetParams,
	chaincfg.TestNet3Params.Name:      &chaincfg.TestNet3Params,
	chaincfg.RegressionNetParams.Name: &chaincfg.RegressionNetParams,
	chaincfg.SigNetParams.Name:        &chaincfg.SigNetParams,
}

// NetParams returns the Bitcoin network parameters selected by Network.
func (c *Config) NetParams() (*chaincfg.Params, error) {
	params, ok := networks[c.Network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, c.Network)
	}
	return params, nil
}

// Verbosity parses LogLevel.
func (c *Config) Verbosity() (log.Lvl, error) {
	return log.LvlFromString(c.LogLevel)
}

// DatabasePath is where the host keeps its leveldb database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.Network, "chaindata")
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.NetParams(); err != nil {
		return err
	}
	if _, err := c.Verbosity(); err != nil {
		return fmt.Errorf("invalid log level %q: %v", c.LogLevel, err)
	}
	return nil
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LoadConfig decodes a TOML file over cfg, so unset keys keep their values.
func LoadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}
