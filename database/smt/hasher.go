// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"sync"

	"github.com/Fantom-foundation/smt/common"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Depth is the number of levels below the root, one per key bit.
const Depth = 8 * common.HashSize

const (
	leafTag     byte = 0x00
	internalTag byte = 0x01
)

// HashAlgorithm is a configuration token selecting the hash function used for
// digesting nodes. Any function producing 32-byte digests may be used.
type HashAlgorithm struct {
	Name   string
	create func() hash.Hash
}

// NewHashAlgorithm creates a configuration token for a custom hash function.
func NewHashAlgorithm(name string, create func() hash.Hash) HashAlgorithm {
	return HashAlgorithm{Name: name, create: create}
}

func (a HashAlgorithm) String() string {
	return a.Name
}

var Sha256Hashing = HashAlgorithm{
	Name:   "Sha256",
	create: sha256.New,
}

// Keccak256Hashing uses the legacy Keccak variant used by Ethereum.
var Keccak256Hashing = HashAlgorithm{
	Name:   "Keccak256",
	create: sha3.NewLegacyKeccak256,
}

var Sha3Hashing = HashAlgorithm{
	Name:   "Sha3-256",
	create: sha3.New256,
}

var Blake2bHashing = HashAlgorithm{
	Name: "Blake2b-256",
	create: func() hash.Hash {
		h, _ := blake2b.New256(nil) // only fails for oversized keys
		return h
	},
}

var allHashAlgorithms = []HashAlgorithm{
	Sha256Hashing, Keccak256Hashing, Sha3Hashing, Blake2bHashing,
}

// GetHashAlgorithmByName locates one of the provided hash algorithms.
func GetHashAlgorithmByName(name string) (HashAlgorithm, bool) {
	for _, algorithm := range allHashAlgorithms {
		if algorithm.Name == name {
			return algorithm, true
		}
	}
	return HashAlgorithm{}, false
}

// Hasher computes domain separated digests of leaves and internal nodes and
// provides the hashes of empty subtrees. It is safe for concurrent use.
// Hashers need to be created by NewHasher; the zero value is not usable.
type Hasher struct {
	algorithm HashAlgorithm
	states    sync.Pool
	empty     [Depth + 1]common.Hash
}

// NewHasher creates a hasher for the given algorithm. The algorithm must
// produce digests of exactly 32 bytes.
func NewHasher(algorithm HashAlgorithm) (*Hasher, error) {
	if algorithm.create == nil {
		return nil, fmt.Errorf("%w: no hash function for algorithm %q", ErrConfiguration, algorithm.Name)
	}
	if size := algorithm.create().Size(); size*8 != Depth {
		return nil, fmt.Errorf("%w: algorithm %q produces %d byte digests, tree depth %d requires %d",
			ErrConfiguration, algorithm.Name, size, Depth, common.HashSize)
	}
	res := &Hasher{algorithm: algorithm}
	res.states.New = func() any { return algorithm.create() }

	// empty[Depth] stays the all-zero sentinel of an empty leaf slot
	for d := Depth - 1; d >= 0; d-- {
		res.empty[d] = res.DigestNode(res.empty[d+1], res.empty[d+1])
	}
	return res, nil
}

// Algorithm returns the hash algorithm of this hasher.
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

// DigestLeaf computes H(0x00 || key || value).
func (h *Hasher) DigestLeaf(key common.Key, value common.Value) common.Hash {
	return h.digest(leafTag, key[:], value[:])
}

// DigestNode computes H(0x01 || left || right).
func (h *Hasher) DigestNode(left, right common.Hash) common.Hash {
	return h.digest(internalTag, left[:], right[:])
}

// Digest hashes arbitrary data without domain prefix.
func (h *Hasher) Digest(data []byte) common.Hash {
	state := h.states.Get().(hash.Hash)
	state.Reset()
	state.Write(data)
	var res common.Hash
	state.Sum(res[:0])
	h.states.Put(state)
	return res
}

func (h *Hasher) digest(tag byte, a, b []byte) common.Hash {
	state := h.states.Get().(hash.Hash)
	state.Reset()
	prefix := [1]byte{tag}
	state.Write(prefix[:])
	state.Write(a)
	state.Write(b)
	var res common.Hash
	state.Sum(res[:0])
	h.states.Put(state)
	return res
}

// EmptySubtreeHash returns E(depth), the hash of a subtree rooted at the
// given depth without any non-empty leaf. E(Depth) is the zero hash. The
// depth must be within [0, Depth]; other depths cause a panic.
func (h *Hasher) EmptySubtreeHash(depth int) common.Hash {
	if depth < 0 || depth > Depth {
		panic(fmt.Sprintf("depth %d out of range [0, %d]", depth, Depth))
	}
	return h.empty[depth]
}

// EmptyRoot returns the root hash of an empty tree.
func (h *Hasher) EmptyRoot() common.Hash {
	return h.empty[0]
}
