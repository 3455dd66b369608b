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

package common

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Lengths of identifiers in bytes.
const (
	// PubkeyLength is the expected length of an account or program identifier.
	PubkeyLength = 32
	// HashLength is the expected length of a double hash.
	HashLength = 32
	// UtxoMetaLength is the expected length of a UTXO reference (txid + vout).
	UtxoMetaLength = 36
)

// ErrInvalidLength is returned when a fixed width identifier is built from
// input of the wrong size.
var ErrInvalidLength = errors.New("invalid identifier length")

/////////// Pubkey

// Pubkey identifies an account or a program. It doubles as the x-only
// secp256k1 key authorized to sign for the account.
type Pubkey [PubkeyLength]byte

// SystemProgram returns the reserved identifier of the built-in system program.
func SystemProgram() Pubkey {
	var p Pubkey
	p[PubkeyLength-1] = 1
	return p
}

// BytesToPubkey converts b to a Pubkey. b must be exactly PubkeyLength bytes.
func BytesToPubkey(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeyLength {
		return p, fmt.Errorf("%w: pubkey needs %d bytes, have %d", ErrInvalidLength, PubkeyLength, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// MustBytesToPubkey is like BytesToPubkey but panics on malformed input.
func MustBytesToPubkey(b []byte) Pubkey {
	p, err := BytesToPubkey(b)
	if err != nil {
		panic(err)
	}
	return p
}

// HexToPubkey parses a pubkey from hex. The 0x prefix is optional.
func HexToPubkey(s string) (Pubkey, error) {
	var p Pubkey
	err := p.UnmarshalText([]byte(s))
	return p, err
}

// Bytes returns a copy of the underlying bytes.
func (p Pubkey) Bytes() []byte { return CopyBytes(p[:]) }

// IsSystemProgram reports whether p is the system program identifier.
func (p Pubkey) IsSystemProgram() bool { return p == SystemProgram() }

// IsZero reports whether every byte of p is zero.
func (p Pubkey) IsZero() bool { return p == Pubkey{} }

// String returns the canonical lowercase hex form without prefix.
func (p Pubkey) String() string { return hex.EncodeToString(p[:]) }

// TerminalString implements log.TerminalStringer, formatting a string for console
// output during logging.
func (p Pubkey) TerminalString() string {
	return fmt.Sprintf("%x..%x", p[:3], p[29:])
}

// Format implements fmt.Formatter.
func (p Pubkey) Format(s fmt.State, c rune) { formatHex(s, c, p[:], "pubkey") }

// MarshalText encodes the pubkey as unprefixed hex.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(p[:])), nil
}

// UnmarshalText decodes the pubkey from hex. The 0x prefix is optional.
func (p *Pubkey) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedUnprefixedText("Pubkey", input, p[:])
}

/////////// Hash

// Hash is the double SHA-256 digest used to identify messages, runtime
// transactions and instructions.
type Hash [HashLength]byte

// BytesToHash converts b to a Hash. b must be exactly HashLength bytes.
func BytesToHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("%w: hash needs %d bytes, have %d", ErrInvalidLength, HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HexToHash parses a hash from hex. The 0x prefix is optional.
func HexToHash(s string) (Hash, error) {
	var h Hash
	err := h.UnmarshalText([]byte(s))
	return h, err
}

// Bytes returns a copy of the underlying bytes.
func (h Hash) Bytes() []byte { return CopyBytes(h[:]) }

// String returns the canonical lowercase hex form without prefix.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// TerminalString implements log.TerminalStringer.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}

// Format implements fmt.Formatter.
func (h Hash) Format(s fmt.State, c rune) { formatHex(s, c, h[:], "hash") }

// Less orders hashes bytewise.
func (h Hash) Less(o Hash) bool { return bytes.Compare(h[:], o[:]) < 0 }

// MarshalText encodes the hash as unprefixed hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText decodes the hash from hex. The 0x prefix is optional.
func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedUnprefixedText("Hash", input, h[:])
}

func formatHex(s fmt.State, c rune, b []byte, name string) {
	hexb := []byte(hex.EncodeToString(b))
	switch c {
	case 'x', 'X':
		if s.Flag('#') {
			hexb = append([]byte("0x"), hexb...)
		}
		if c == 'X' {
			hexb = bytes.ToUpper(hexb)
		}
		s.Write(hexb)
	case 'v', 's':
		s.Write(hexb)
	case 'q':
		fmt.Fprintf(s, "%q", string(hexb))
	case 'd':
		fmt.Fprint(s, b)
	default:
		fmt.Fprintf(s, "%%!%c(%s=%x)", c, name, b)
	}
}

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)
	return
}
