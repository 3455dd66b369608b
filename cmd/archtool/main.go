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

// archtool is a command line companion for the runtime: it inspects encoded
// runtime transactions and runs an in-process host for experiments.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: -1,
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the database",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "Bitcoin network (mainnet, testnet3, regtest, signet)",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "archtool"
	app.HelpName = "archtool"
	app.Usage = "runtime transaction and host tooling"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		dataDirFlag,
		networkFlag,
	}
	app.Commands = []cli.Command{
		txidCommand,
		decodeCommand,
		simulateCommand,
		dumpConfigCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	app.Before = func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		lvl, err := cfg.Verbosity()
		if err != nil {
			return err
		}
		setupLogging(os.Stderr, lvl)
		return nil
	}
	return app
}

func setupLogging(w io.Writer, lvl log.Lvl) {
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(w, log.TerminalFormat(false))))
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
