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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/probeum/go-arch/archconfig"
	"github.com/probeum/go-arch/client"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core"
	"github.com/probeum/go-arch/core/bitcoin"
	"github.com/probeum/go-arch/core/rawdb"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/crypto"
	"github.com/probeum/go-arch/programs/counter"
	"gopkg.in/urfave/cli.v1"
)

var (
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "Name stored in the counter",
		Value: "alice",
	}
	countFlag = cli.IntFlag{
		Name:  "count",
		Usage: "Number of increments to run",
		Value: 3,
	}
	anchorFlag = cli.BoolFlag{
		Name:  "anchor",
		Usage: "Anchor every increment on the simulated Bitcoin chain",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "Keep host state in a leveldb database under the data directory",
	}
	netKeyFlag = cli.StringFlag{
		Name:  "netkey",
		Usage: "File holding the hex encoded network key (generated when empty)",
	}

	simulateCommand = cli.Command{
		Action:   simulate,
		Name:     "simulate",
		Usage:    "Run the counter program against an in-process host",
		Flags:    []cli.Flag{nameFlag, countFlag, anchorFlag, persistFlag, netKeyFlag},
		Category: "HOST COMMANDS",
		Description: `
Starts a host over an in-memory Bitcoin chain, funds and creates a counter
account, then increments it --count times. With --anchor every increment is
anchored by a state transition transaction that is mined before the next one.`,
	}
)

// counterProgramID is the id the simulator registers the counter under.
var counterProgramID = common.Pubkey{'c', 'o', 'u', 'n', 't', 'e', 'r'}

func loadNetworkKey(file string) (*btcec.PrivateKey, error) {
	if file == "" {
		return crypto.GenerateKey()
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		log.Info("Generated network key", "file", file)
		return key, crypto.SaveKey(file, key)
	}
	return crypto.LoadKey(file)
}

func openDatabase(ctx *cli.Context, cfg *archconfig.Config) (rawdb.KeyValueStore, error) {
	if !ctx.Bool(persistFlag.Name) {
		return rawdb.NewMemoryDatabase(), nil
	}
	return rawdb.NewLevelDBDatabase(cfg.DatabasePath(), cfg.DatabaseCache, cfg.DatabaseHandles)
}

func simulate(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	params, err := cfg.NetParams()
	if err != nil {
		return err
	}
	netKey, err := loadNetworkKey(ctx.String(netKeyFlag.Name))
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, &cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	chain := bitcoin.NewMemoryChain()
	host, err := core.NewProcessor(core.Config{
		NetworkKey:         netKey,
		Backend:            chain,
		DB:                 db,
		OutcomeCacheSize:   cfg.OutcomeCacheSize,
		BitcoinTxCacheSize: cfg.BitcoinTxCacheSize,
	})
	if err != nil {
		return err
	}
	if err := host.Register(counterProgramID, counter.Process); err != nil {
		return err
	}

	userKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	user := crypto.PubkeyOf(userKey)
	script, err := host.AccountScriptPubkey(user)
	if err != nil {
		return err
	}
	addr, err := btcutil.NewAddressTaproot(script[2:], params)
	if err != nil {
		return err
	}
	utxo := common.UtxoMetaFromOutPoint(chain.Fund(script, btcutil.Amount(10_000)))
	fmt.Printf("account %s\naddress %s\nfunded  %s\n", user, addr.EncodeAddress(), utxo)

	name := ctx.String(nameFlag.Name)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Txid", "Status", "Anchors", "Reason"})
	seq := uint32(0)
	submit := func(ixs ...*types.Instruction) error {
		seq++
		msg := &types.Message{Signers: []common.Pubkey{user}, Instructions: ixs}
		rtx, err := types.NewRuntimeTransaction(seq, msg, []*btcec.PrivateKey{userKey})
		if err != nil {
			return err
		}
		txid, err := host.Process(rtx)
		if err != nil {
			return err
		}
		if mined := chain.Mine(); mined > 0 {
			if _, err := host.SyncConfirmations(); err != nil {
				return err
			}
		}
		p, err := client.WaitForProcessed(context.Background(), host, txid, cfg.Poll)
		if err != nil {
			return err
		}
		var anchors []string
		for _, btc := range p.AllBitcoinTxids() {
			anchors = append(anchors, btc.TerminalString())
		}
		table.Append([]string{fmt.Sprint(seq), txid.TerminalString(), p.Status.String(), strings.Join(anchors, " "), p.FailureReason})
		return nil
	}

	err = submit(
		types.NewCreateAccountInstruction(utxo, user),
		types.NewAssignInstruction(user, counterProgramID),
		counter.NewInstruction(counterProgramID, user, counter.Initialize, name),
	)
	if err != nil {
		return err
	}
	tag := counter.Increment
	if ctx.Bool(anchorFlag.Name) {
		tag = counter.IncrementAndAnchor
	}
	for i := 0; i < ctx.Int(countFlag.Name); i++ {
		if err := submit(counter.NewInstruction(counterProgramID, user, tag, name)); err != nil {
			return err
		}
	}

	table.Render()

	acct := host.GetAccount(user)
	if acct == nil {
		return fmt.Errorf("account %s missing", user)
	}
	value, msg, err := counter.Decode(acct.Data)
	if err != nil {
		return err
	}
	fmt.Printf("counter %d %q\nutxo    %s\n", value, msg, acct.Utxo)
	return nil
}
