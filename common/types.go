// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"encoding/hex"
	"fmt"
	"unsafe"
)

// HashSize is the size of digests, keys and values in bytes.
const HashSize = 32

// Hash is the type of a node identifier and of every digest produced by a tree's hasher.
type Hash [HashSize]byte

// Key addresses a leaf slot of a sparse Merkle tree.
type Key [HashSize]byte

// Value is the content of a leaf slot. The all-zero value denotes an empty slot.
type Value [HashSize]byte

// EmptyValue is the value read from every slot that was never written or was deleted.
var EmptyValue = Value{}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (v Value) String() string {
	return fmt.Sprintf("0x%x", v[:])
}

// IsEmpty reports whether the value is the canonical empty value.
func (v Value) IsEmpty() bool {
	return v == EmptyValue
}

// Bit returns the i-th bit of the key, counting from the most significant bit of the first
// byte. A result of 0 selects the left child, 1 the right child.
func (k *Key) Bit(i int) byte {
	return (k[i/8] >> (7 - i%8)) & 1
}

// GetHashSize provides the memory size of a Hash.
func GetHashSize() uintptr {
	return unsafe.Sizeof(Hash{})
}

// HashFromBytes copies the given bytes into a Hash. The input must be exactly 32 bytes long.
func HashFromBytes(data []byte) (Hash, error) {
	var res Hash
	if len(data) != HashSize {
		return res, fmt.Errorf("invalid hash length: %d", len(data))
	}
	copy(res[:], data)
	return res, nil
}

// ParseHash parses a hex string with an optional 0x prefix into a Hash.
func ParseHash(s string) (Hash, error) {
	var res Hash
	err := parseHex(s, res[:])
	return res, err
}

// ParseKey parses a hex string with an optional 0x prefix into a Key.
func ParseKey(s string) (Key, error) {
	var res Key
	err := parseHex(s, res[:])
	return res, err
}

// ParseValue parses a hex string with an optional 0x prefix into a Value.
func ParseValue(s string) (Value, error) {
	var res Value
	err := parseHex(s, res[:])
	return res, err
}

func parseHex(s string, out []byte) error {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 2*len(out) {
		return fmt.Errorf("invalid hex length %d, expected %d digits", len(s), 2*len(out))
	}
	_, err := hex.Decode(out, []byte(s))
	return err
}
