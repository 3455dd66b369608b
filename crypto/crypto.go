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
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/probeum/go-arch/common"
)

// SignatureLength is the byte length of a BIP-340 signature.
const SignatureLength = 64

// DigestLength sets the signature digest exact length
const DigestLength = 32

var (
	errInvalidPrivkey = errors.New("invalid secp256k1 private key")
	errInvalidDigest  = errors.New("invalid digest length, want 32 bytes")
)

// GenerateKey generates a new private key.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// ToPrivateKey creates a private key with the given D value. Zero and
// out-of-range scalars are rejected.
func ToPrivateKey(d []byte) (*btcec.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, have %d", errInvalidPrivkey, len(d))
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(d); overflow || s.IsZero() {
		return nil, errInvalidPrivkey
	}
	priv, _ := btcec.PrivKeyFromBytes(d)
	return priv, nil
}

// HexToPrivateKey parses a secp256k1 private key.
func HexToPrivateKey(hexkey string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(hexkey)
	if byteErr, ok := err.(hex.InvalidByteError); ok {
		return nil, fmt.Errorf("invalid hex character %q in private key", byte(byteErr))
	} else if err != nil {
		return nil, errors.New("invalid hex data for private key")
	}
	return ToPrivateKey(b)
}

// PubkeyOf returns the x-only public key of priv as an account identifier.
func PubkeyOf(priv *btcec.PrivateKey) common.Pubkey {
	var p common.Pubkey
	copy(p[:], schnorr.SerializePubKey(priv.PubKey()))
	return p
}

// ParsePubkey lifts an x-only account identifier onto the curve.
func ParsePubkey(p common.Pubkey) (*btcec.PublicKey, error) {
	return schnorr.ParsePubKey(p[:])
}

// Sign produces a BIP-340 signature over a 32 byte digest.
func Sign(digest []byte, priv *btcec.PrivateKey) ([SignatureLength]byte, error) {
	var out [SignatureLength]byte
	if len(digest) != DigestLength {
		return out, errInvalidDigest
	}
	sig, err := schnorr.Sign(priv, digest)
	if err != nil {
		return out, err
	}
	copy(out[:], sig.Serialize())
	return out, nil
}

// VerifySignature checks a BIP-340 signature over digest against the x-only key.
func VerifySignature(pubkey common.Pubkey, digest []byte, sig [SignatureLength]byte) bool {
	if len(digest) != DigestLength {
		return false
	}
	pub, err := ParsePubkey(pubkey)
	if err != nil {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	return parsed.Verify(digest, pub)
}

// LoadKey loads a hex encoded secp256k1 private key from the given file.
func LoadKey(file string) (*btcec.PrivateKey, error) {
	fd, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	r := bufio.NewReader(fd)
	buf := make([]byte, 64)
	n, err := readASCII(buf, r)
	if err != nil {
		return nil, err
	} else if n != len(buf) {
		return nil, fmt.Errorf("key file too short, want 64 hex characters")
	}
	if err := checkKeyFileEnd(r); err != nil {
		return nil, err
	}
	return HexToPrivateKey(string(buf))
}

// SaveKey saves a secp256k1 private key to the given file with
// restrictive permissions. The key data is saved hex-encoded.
func SaveKey(file string, key *btcec.PrivateKey) error {
	k := hex.EncodeToString(key.Serialize())
	return os.WriteFile(file, []byte(k), 0600)
}

// readASCII reads into 'buf', stopping when the buffer is full or
// when a non-printable control character is encountered.
func readASCII(buf []byte, r *bufio.Reader) (n int, err error) {
	for ; n < len(buf); n++ {
		buf[n], err = r.ReadByte()
		switch {
		case err == io.EOF || buf[n] < '!':
			return n, nil
		case err != nil:
			return n, err
		}
	}
	return n, nil
}

// checkKeyFileEnd skips over additional newlines at the end of a key file.
func checkKeyFileEnd(r *bufio.Reader) error {
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		case b != '\n' && b != '\r':
			return fmt.Errorf("invalid character %q at end of key file", b)
		case i >= 2:
			return errors.New("key file too long, want 64 hex characters")
		}
	}
}
