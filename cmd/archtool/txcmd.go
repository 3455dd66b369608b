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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/types"
	"gopkg.in/urfave/cli.v1"
)

var (
	txidCommand = cli.Command{
		Action:    txid,
		Name:      "txid",
		Usage:     "Print the id of an encoded runtime transaction",
		ArgsUsage: "<hex>",
		Category:  "TRANSACTION COMMANDS",
	}
	decodeCommand = cli.Command{
		Action:    decode,
		Name:      "decode",
		Usage:     "Decode a runtime transaction and verify its signatures",
		ArgsUsage: "<hex>",
		Category:  "TRANSACTION COMMANDS",
		Description: `
Decodes the canonical encoding of a runtime transaction and prints it as JSON
together with its id, the hash of every instruction and the result of the
stateless checks a host runs before execution.`,
	}
)

func runtimeTxArg(ctx *cli.Context) (*types.RuntimeTransaction, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("expected one hex encoded runtime transaction")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(ctx.Args().First(), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %v", err)
	}
	return types.DecodeRuntimeTransaction(raw)
}

func txid(ctx *cli.Context) error {
	rtx, err := runtimeTxArg(ctx)
	if err != nil {
		return err
	}
	id, err := rtx.Txid()
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

type decodedTx struct {
	Txid         common.Hash               `json:"txid"`
	Transaction  *types.RuntimeTransaction `json:"transaction"`
	Instructions []common.Hash             `json:"instruction_hashes"`
	Valid        bool                      `json:"valid"`
	Error        string                    `json:"error,omitempty"`
}

func decode(ctx *cli.Context) error {
	rtx, err := runtimeTxArg(ctx)
	if err != nil {
		return err
	}
	out := decodedTx{Transaction: rtx, Valid: true}
	if out.Txid, err = rtx.Txid(); err != nil {
		return err
	}
	for _, ix := range rtx.Message.Instructions {
		h, err := ix.Hash()
		if err != nil {
			return err
		}
		out.Instructions = append(out.Instructions, h)
	}
	if err := rtx.Sanitize(); err != nil {
		out.Valid, out.Error = false, err.Error()
	} else if err := rtx.VerifySignatures(); err != nil {
		out.Valid, out.Error = false, err.Error()
	}
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
