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

package core

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	mapset "github.com/deckarep/golang-set"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/bitcoin"
	"github.com/probeum/go-arch/core/state"
	"github.com/probeum/go-arch/core/types"
	"github.com/probeum/go-arch/program"
	"github.com/probeum/go-arch/program/account"
	"github.com/probeum/go-arch/program/alloc"
	"github.com/probeum/go-arch/program/entrypoint"
)

// stagedAnchor is a signed state transition waiting for the transaction to
// finish before it is broadcast.
type stagedAnchor struct {
	hash        chainhash.Hash
	tx          *wire.MsgTx
	instruction common.Hash
}

// txContext carries what the instructions of one runtime transaction share.
type txContext struct {
	txid    common.Hash
	signers mapset.Set
	anchors []*stagedAnchor
	staged  map[chainhash.Hash]*wire.MsgTx
}

func newTxContext(txid common.Hash, signers []common.Pubkey) *txContext {
	tc := &txContext{
		txid:    txid,
		signers: mapset.NewSet(),
		staged:  make(map[chainhash.Hash]*wire.MsgTx),
	}
	for _, s := range signers {
		tc.signers.Add(s)
	}
	return tc
}

// signingRequest is a validated SetTransactionToSign call.
type signingRequest struct {
	tx       *wire.MsgTx
	inputs   []types.InputToSign
	anchored []common.Pubkey
}

// execution is the state shared by every invocation of one top-level
// instruction.
type execution struct {
	tc          *txContext
	instruction common.Hash
	requests    []*signingRequest
	returnID    common.Pubkey
	returnData  []byte
	logs        []string
}

// hostContext implements invoke.Syscalls for one program invocation.
type hostContext struct {
	p         *Processor
	exec      *execution
	programID common.Pubkey
	inputs    []entrypoint.InputAccount
	// baseline holds each account as last seen by the host, with the
	// privileges of all its occurrences merged.
	baseline map[common.Pubkey]*entrypoint.InputAccount
	depth    int
}

func (p *Processor) newHostContext(exec *execution, programID common.Pubkey, inputs []entrypoint.InputAccount, depth int) *hostContext {
	hc := &hostContext{
		p:         p,
		exec:      exec,
		programID: programID,
		inputs:    inputs,
		baseline:  make(map[common.Pubkey]*entrypoint.InputAccount),
		depth:     depth,
	}
	for _, in := range inputs {
		if b, ok := hc.baseline[in.Key]; ok {
			b.IsSigner = b.IsSigner || in.IsSigner
			b.IsWritable = b.IsWritable || in.IsWritable
			continue
		}
		cpy := in
		cpy.Data = common.CopyBytes(in.Data)
		hc.baseline[in.Key] = &cpy
	}
	return hc
}

// run serializes the inputs, executes the program and returns the buffer
// for write-back.
func (hc *hostContext) run(data []byte) ([]byte, *entrypoint.InputLayout, uint64) {
	handler, ok := hc.p.programs[hc.programID]
	if !ok {
		return nil, nil, program.ErrUnsupportedProgramID.Code()
	}
	buf, layout, err := entrypoint.Serialize(hc.programID, hc.inputs, data)
	if err != nil {
		return nil, nil, program.ErrorCode(err)
	}
	code := entrypoint.Entrypoint(buf, &entrypoint.Context{Heap: alloc.New(), Sys: hc}, handler)
	return buf, layout, code
}

// collect reads the program's view of every distinct account out of buf.
// Changes since the host last synced the account are checked against the
// write-back rules; accounts that differ from the invocation's input are
// passed to fn.
func (hc *hostContext) collect(buf []byte, layout *entrypoint.InputLayout, fn func(key common.Pubkey, owner common.Pubkey, data []byte) error) error {
	for i, slot := range layout.Slots {
		if slot.Dup >= 0 {
			continue
		}
		in := hc.inputs[i]
		data, err := layout.Data(buf, i)
		if err != nil {
			return err
		}
		owner := layout.Owner(buf, i)
		base := hc.baseline[in.Key]
		dataChanged := !bytes.Equal(base.Data, data)
		ownerChanged := owner != base.Owner
		if dataChanged || ownerChanged {
			if err := checkWriteBack(hc.programID, base, dataChanged, ownerChanged); err != nil {
				return err
			}
		}
		if owner == in.Owner && bytes.Equal(in.Data, data) {
			continue
		}
		if err := fn(in.Key, owner, data); err != nil {
			return err
		}
	}
	return nil
}

// checkWriteBack enforces who may change an account during an invocation:
// only the owning program, only through a writable reference, never on an
// executable account.
func checkWriteBack(programID common.Pubkey, base *entrypoint.InputAccount, dataChanged, ownerChanged bool) error {
	switch {
	case !base.IsWritable || base.IsExecutable:
		return fmt.Errorf("%w: %s", program.ErrReadonlyDataModified, base.Key)
	case base.Owner != programID && dataChanged:
		return fmt.Errorf("%w: %s owned by %s", program.ErrExternalAccountDataModified, base.Key, base.Owner)
	case base.Owner != programID && ownerChanged:
		return fmt.Errorf("%w: %s owned by %s", program.ErrIllegalOwner, base.Key, base.Owner)
	}
	return nil
}

// Invoke runs a nested instruction over the caller's views and syncs the
// callee's changes back into them.
func (hc *hostContext) Invoke(ix *types.Instruction, accounts []*account.AccountInfo) uint64 {
	if hc.depth+1 >= maxInvokeDepth {
		hc.Log(fmt.Sprintf("invocation depth %d exceeded", maxInvokeDepth))
		return program.ErrProgramFailed.Code()
	}
	if ix.ProgramID.IsSystemProgram() {
		hc.Log("the system program cannot be invoked from a program")
		return program.ErrUnsupportedProgramID.Code()
	}
	views := make(map[common.Pubkey]*account.AccountInfo, len(accounts))
	for _, a := range accounts {
		if _, ok := views[a.Key()]; !ok {
			views[a.Key()] = a
		}
	}
	inputs := make([]entrypoint.InputAccount, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		view := views[meta.Pubkey]
		if view == nil {
			return program.ErrNotEnoughAccountKeys.Code()
		}
		if (meta.IsWritable && !view.IsWritable) || (meta.IsSigner && !view.IsSigner) {
			hc.Log(fmt.Sprintf("privilege escalation on %s", meta.Pubkey))
			return program.ErrPrivilegeEscalation.Code()
		}
		data, release, err := view.TryBorrowData()
		if err != nil {
			return program.ErrorCode(err)
		}
		inputs = append(inputs, entrypoint.InputAccount{
			Key:          meta.Pubkey,
			Owner:        view.Owner(),
			Utxo:         view.Utxo(),
			Data:         common.CopyBytes(data),
			IsSigner:     meta.IsSigner,
			IsWritable:   meta.IsWritable,
			IsExecutable: view.IsExecutable,
		})
		release()
	}

	hc.exec.returnID, hc.exec.returnData = common.Pubkey{}, nil
	callee := hc.p.newHostContext(hc.exec, ix.ProgramID, inputs, hc.depth+1)
	queued := len(hc.exec.requests)
	buf, layout, code := callee.run(ix.Data)
	if code != program.Success {
		// Signing requests of a failed call are dropped with its changes.
		hc.exec.requests = hc.exec.requests[:queued]
		return code
	}
	err := callee.collect(buf, layout, func(key, owner common.Pubkey, data []byte) error {
		if err := views[key].SyncFromHost(owner, data); err != nil {
			return err
		}
		if base := hc.baseline[key]; base != nil {
			base.Owner, base.Data = owner, common.CopyBytes(data)
		}
		return nil
	})
	if err != nil {
		hc.exec.requests = hc.exec.requests[:queued]
		hc.Log(err.Error())
		return program.ErrorCode(err)
	}
	return program.Success
}

// SetTransactionToSign validates a signing request and queues it until the
// invoking instruction succeeds.
func (hc *hostContext) SetTransactionToSign(payload []byte, anchored []common.Pubkey) uint64 {
	req, err := hc.signingRequest(payload, anchored)
	if err != nil {
		hc.Log(err.Error())
		return program.ErrorCode(err)
	}
	hc.exec.requests = append(hc.exec.requests, req)
	return program.Success
}

func (hc *hostContext) signingRequest(payload []byte, anchored []common.Pubkey) (*signingRequest, error) {
	tts, err := types.DecodeTransactionToSign(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", program.ErrMalformedInput, err)
	}
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(tts.TxBytes)); err != nil {
		return nil, fmt.Errorf("%w: %v", program.ErrInvalidArgument, err)
	}
	owned := func(key common.Pubkey) (*entrypoint.InputAccount, error) {
		base := hc.baseline[key]
		switch {
		case base == nil || !base.IsWritable:
			return nil, fmt.Errorf("%w: %s is not a writable account of this invocation", program.ErrMissingRequiredSignature, key)
		case base.Owner != hc.programID:
			return nil, fmt.Errorf("%w: %s owned by %s", program.ErrIllegalOwner, key, base.Owner)
		}
		return base, nil
	}
	req := &signingRequest{tx: tx, anchored: anchored}
	for _, in := range tts.InputsToSign {
		if int(in.Index) >= len(tx.TxIn) {
			return nil, fmt.Errorf("%w: input %d of %d", program.ErrInvalidArgument, in.Index, len(tx.TxIn))
		}
		base, err := owned(in.Signer)
		if err != nil {
			return nil, err
		}
		if common.UtxoMetaFromOutPoint(tx.TxIn[in.Index].PreviousOutPoint) != base.Utxo {
			return nil, fmt.Errorf("%w: input %d does not spend %s", program.ErrInvalidUtxo, in.Index, base.Utxo)
		}
		req.inputs = append(req.inputs, in)
	}
	if len(anchored) > len(tx.TxOut) {
		return nil, fmt.Errorf("%w: %d anchored accounts, %d outputs", program.ErrInvalidArgument, len(anchored), len(tx.TxOut))
	}
	for i, key := range anchored {
		if _, err := owned(key); err != nil {
			return nil, err
		}
		if !bitcoin.OwnsScript(hc.p.networkXOnly, key, tx.TxOut[i].PkScript) {
			return nil, fmt.Errorf("%w: output %d does not commit to %s", program.ErrInvalidArgument, i, key)
		}
	}
	return req, nil
}

func (hc *hostContext) SetReturnData(data []byte) {
	hc.exec.returnID = hc.programID
	hc.exec.returnData = common.CopyBytes(data)
}

func (hc *hostContext) GetReturnData() (common.Pubkey, []byte) {
	return hc.exec.returnID, common.CopyBytes(hc.exec.returnData)
}

func (hc *hostContext) GetBitcoinTx(txid [32]byte) []byte {
	raw, err := hc.p.rawBitcoinTx(hc.exec.tc, common.TxidToChainhash(txid))
	if err != nil {
		return nil
	}
	return raw
}

func (hc *hostContext) GetNetworkXOnlyPubkey() [32]byte { return hc.p.networkXOnly }

func (hc *hostContext) ValidateUtxoOwnership(utxo common.UtxoMeta, owner common.Pubkey) bool {
	out, err := hc.p.prevOutput(hc.exec.tc, utxo.OutPoint())
	if err != nil {
		return false
	}
	return bitcoin.OwnsScript(hc.p.networkXOnly, owner, out.PkScript)
}

func (hc *hostContext) GetAccountScriptPubkey(key common.Pubkey) (out [program.AccountScriptPubkeyLength]byte) {
	script, err := bitcoin.AccountScriptPubkey(hc.p.networkXOnly, key)
	if err == nil {
		copy(out[:], script)
	}
	return out
}

func (hc *hostContext) Log(msg string) {
	hc.exec.logs = append(hc.exec.logs, msg)
	hc.p.log.Debug("Program log", "program", hc.programID.TerminalString(), "depth", hc.depth, "msg", msg)
}

// rawBitcoinTx serializes a transaction staged by tc or known to the backend.
func (p *Processor) rawBitcoinTx(tc *txContext, hash chainhash.Hash) ([]byte, error) {
	if tx, ok := tc.staged[hash]; ok {
		return serializeTx(tx)
	}
	if pa, ok := p.pending[hash]; ok {
		return serializeTx(pa.tx)
	}
	if raw, ok := p.txCache.Get(hash); ok {
		return raw.([]byte), nil
	}
	tx, err := p.backend.GetRawTransaction(hash)
	if err != nil {
		return nil, err
	}
	raw, err := serializeTx(tx)
	if err != nil {
		return nil, err
	}
	p.txCache.Add(hash, raw)
	return raw, nil
}

func (p *Processor) prevOutput(tc *txContext, op wire.OutPoint) (*wire.TxOut, error) {
	tx, ok := tc.staged[op.Hash]
	if !ok {
		pa, pending := p.pending[op.Hash]
		if !pending {
			return p.PrevOutput(op)
		}
		tx = pa.tx
	}
	if int(op.Index) >= len(tx.TxOut) {
		return nil, fmt.Errorf("%w: %s", bitcoin.ErrMissingInput, op)
	}
	return tx.TxOut[op.Index], nil
}

// stagedOutputs resolves outputs of transactions staged earlier in the same
// runtime transaction before asking the backend.
type stagedOutputs struct {
	p  *Processor
	tc *txContext
}

func (s stagedOutputs) PrevOutput(op wire.OutPoint) (*wire.TxOut, error) {
	return s.p.prevOutput(s.tc, op)
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// executeInstruction runs one top-level instruction and applies its effects
// to the state: account write-back first, then the requested anchors.
func (p *Processor) executeInstruction(tc *txContext, ix *types.Instruction) error {
	if ix.ProgramID.IsSystemProgram() {
		return p.applySystemInstruction(tc, ix)
	}
	hash, err := ix.Hash()
	if err != nil {
		return err
	}
	inputs := make([]entrypoint.InputAccount, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		acct := p.state.GetAccount(meta.Pubkey)
		if acct == nil {
			return fmt.Errorf("%w: %s", state.ErrAccountNotFound, meta.Pubkey)
		}
		inputs[i] = entrypoint.InputAccount{
			Key:          acct.Key,
			Owner:        acct.Owner,
			Utxo:         acct.Utxo,
			Data:         acct.Data,
			IsSigner:     meta.IsSigner && tc.signers.Contains(meta.Pubkey),
			IsWritable:   meta.IsWritable,
			IsExecutable: acct.Executable,
		}
	}
	exec := &execution{tc: tc, instruction: hash}
	hc := p.newHostContext(exec, ix.ProgramID, inputs, 0)
	buf, layout, code := hc.run(ix.Data)
	if code != program.Success {
		return invocationError(program.ErrorFromCode(code), exec.logs)
	}
	err = hc.collect(buf, layout, func(key, owner common.Pubkey, data []byte) error {
		if err := p.state.SetData(key, data); err != nil {
			return err
		}
		return p.state.SetOwner(key, owner)
	})
	if err != nil {
		return err
	}
	for _, req := range exec.requests {
		if err := p.stageAnchor(exec, req); err != nil {
			return err
		}
	}
	return nil
}

// stageAnchor signs a state transition with the network key and rebinds the
// anchored accounts to its outputs. Broadcasting waits for the transaction.
func (p *Processor) stageAnchor(exec *execution, req *signingRequest) error {
	prevOuts, err := bitcoin.PrevOutputs(stagedOutputs{p, exec.tc}, req.tx)
	if err != nil {
		return err
	}
	if err := bitcoin.SignInputs(req.tx, prevOuts, req.inputs, p.networkKey); err != nil {
		return err
	}
	hash := req.tx.TxHash()
	for i, key := range req.anchored {
		if err := p.state.SetUtxo(key, common.UtxoMetaFromOutPoint(*wire.NewOutPoint(&hash, uint32(i)))); err != nil {
			return err
		}
	}
	exec.tc.staged[hash] = req.tx
	exec.tc.anchors = append(exec.tc.anchors, &stagedAnchor{hash: hash, tx: req.tx, instruction: exec.instruction})
	p.log.Debug("Staged state transition", "btctx", hash, "accounts", len(req.anchored))
	return nil
}

// invocationError attaches the last program log line to a failure.
func invocationError(err error, logs []string) error {
	if len(logs) == 0 {
		return err
	}
	last := logs[len(logs)-1]
	if last == err.Error() {
		return err
	}
	return fmt.Errorf("%w: %s", err, last)
}
