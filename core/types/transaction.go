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

package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/crypto"
)

const (
	// RuntimeTxSizeLimit is the largest accepted encoded runtime transaction.
	RuntimeTxSizeLimit = 1024
	// SignatureLength is the size of a BIP-340 signature.
	SignatureLength = crypto.SignatureLength
)

var (
	ErrTxSizeLimitExceeded = errors.New("runtime transaction exceeds size limit")
	ErrSignatureCount      = errors.New("signature count does not match signer count")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrMissingSigner       = errors.New("account requires a signature that is not in the message")
)

// Signature is a BIP-340 Schnorr signature.
type Signature [SignatureLength]byte

// String returns the signature as unprefixed hex.
func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// MarshalText encodes the signature as unprefixed hex.
func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a hex signature.
func (s *Signature) UnmarshalText(input []byte) error {
	b, err := hex.DecodeString(string(input))
	if err != nil {
		return err
	}
	if len(b) != SignatureLength {
		return fmt.Errorf("%w: signature needs %d bytes, have %d", common.ErrInvalidLength, SignatureLength, len(b))
	}
	copy(s[:], b)
	return nil
}

// RuntimeTransaction is the unit clients submit: a versioned, signed message.
type RuntimeTransaction struct {
	Version    uint32      `json:"version"`
	Signatures []Signature `json:"signatures"`
	Message    *Message    `json:"message"`
}

// NewRuntimeTransaction signs msg with keys, in signer order. keys must hold
// one key per message signer.
func NewRuntimeTransaction(version uint32, msg *Message, keys []*btcec.PrivateKey) (*RuntimeTransaction, error) {
	if len(keys) != len(msg.Signers) {
		return nil, fmt.Errorf("%w: %d keys for %d signers", ErrSignatureCount, len(keys), len(msg.Signers))
	}
	hash, err := msg.Hash()
	if err != nil {
		return nil, err
	}
	tx := &RuntimeTransaction{Version: version, Message: msg}
	for i, key := range keys {
		if crypto.PubkeyOf(key) != msg.Signers[i] {
			return nil, fmt.Errorf("key %d does not match signer %s", i, msg.Signers[i])
		}
		sig, err := crypto.Sign(hash[:], key)
		if err != nil {
			return nil, err
		}
		tx.Signatures = append(tx.Signatures, sig)
	}
	return tx, nil
}

// Serialize encodes the transaction as
// u32 version | u8 count | signatures | message.
func (tx *RuntimeTransaction) Serialize() ([]byte, error) {
	if err := checkListLength("signatures", len(tx.Signatures)); err != nil {
		return nil, err
	}
	b := appendU32(nil, tx.Version)
	b = append(b, byte(len(tx.Signatures)))
	for _, s := range tx.Signatures {
		b = append(b, s[:]...)
	}
	return tx.Message.appendTo(b)
}

// Txid returns the double hash of the encoding.
func (tx *RuntimeTransaction) Txid() (common.Hash, error) {
	enc, err := tx.Serialize()
	if err != nil {
		return common.Hash{}, err
	}
	return DoubleHash(enc), nil
}

// CheckSizeLimit rejects transactions whose encoding exceeds RuntimeTxSizeLimit.
func (tx *RuntimeTransaction) CheckSizeLimit() error {
	enc, err := tx.Serialize()
	if err != nil {
		return err
	}
	if len(enc) > RuntimeTxSizeLimit {
		return fmt.Errorf("%w: %d > %d", ErrTxSizeLimitExceeded, len(enc), RuntimeTxSizeLimit)
	}
	return nil
}

// Sanitize performs the stateless checks a host runs before execution: size,
// one signature per signer, and every signer flag backed by a message signer.
func (tx *RuntimeTransaction) Sanitize() error {
	if tx.Message == nil {
		return errors.New("runtime transaction without message")
	}
	if err := tx.CheckSizeLimit(); err != nil {
		return err
	}
	if len(tx.Signatures) != len(tx.Message.Signers) {
		return fmt.Errorf("%w: %d signatures, %d signers", ErrSignatureCount, len(tx.Signatures), len(tx.Message.Signers))
	}
	for i, ix := range tx.Message.Instructions {
		for _, m := range ix.Accounts {
			if m.IsSigner && !tx.Message.HasSigner(m.Pubkey) {
				return fmt.Errorf("%w: instruction %d account %s", ErrMissingSigner, i, m.Pubkey)
			}
		}
	}
	return nil
}

// VerifySignatures checks each signature against its signer over the message hash.
func (tx *RuntimeTransaction) VerifySignatures() error {
	if len(tx.Signatures) != len(tx.Message.Signers) {
		return ErrSignatureCount
	}
	hash, err := tx.Message.Hash()
	if err != nil {
		return err
	}
	for i, signer := range tx.Message.Signers {
		if !crypto.VerifySignature(signer, hash[:], tx.Signatures[i]) {
			return fmt.Errorf("%w: signer %s", ErrInvalidSignature, signer)
		}
	}
	return nil
}

// DecodeRuntimeTransaction is the inverse of RuntimeTransaction.Serialize.
func DecodeRuntimeTransaction(b []byte) (*RuntimeTransaction, error) {
	d := newDecoder(b)
	tx, err := decodeRuntimeTransaction(d)
	if err != nil {
		return nil, err
	}
	return tx, d.finish()
}

func decodeRuntimeTransaction(d *decoder) (*RuntimeTransaction, error) {
	version, err := d.u32()
	if err != nil {
		return nil, fmt.Errorf("transaction version: %w", err)
	}
	n, err := d.u8()
	if err != nil {
		return nil, fmt.Errorf("transaction signature count: %w", err)
	}
	tx := &RuntimeTransaction{Version: version, Signatures: make([]Signature, n)}
	for i := range tx.Signatures {
		b, err := d.next(SignatureLength)
		if err != nil {
			return nil, fmt.Errorf("transaction signature %d: %w", i, err)
		}
		copy(tx.Signatures[i][:], b)
	}
	if tx.Message, err = decodeMessage(d); err != nil {
		return nil, err
	}
	return tx, nil
}
