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
	"crypto/subtle"
	"fmt"
	"math/bits"

	"github.com/Fantom-foundation/smt/common"
)

// Proof certifies the value of a key, or its absence, relative to a root.
type Proof struct {
	Key      common.Key
	Value    common.Value
	Included bool
	// Siblings holds the sibling hashes along the key's path, starting with
	// the sibling of the leaf slot and ending with the sibling of the root's
	// child. Valid proofs have exactly Depth siblings.
	Siblings []common.Hash
}

// Prove creates a proof for the current value of the key. For keys not
// present in the tree a non-inclusion proof is produced.
func (t *Tree) Prove(key common.Key) (*Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	proof := &Proof{
		Key:      key,
		Siblings: make([]common.Hash, Depth),
	}
	current := t.root
	depth := 0
	for ; depth < Depth; depth++ {
		if current == t.hasher.EmptySubtreeHash(depth) {
			break
		}
		left, right, err := t.loadInternal(current, depth)
		if err != nil {
			return nil, err
		}
		if key.Bit(depth) == 0 {
			current, proof.Siblings[Depth-1-depth] = left, right
		} else {
			current, proof.Siblings[Depth-1-depth] = right, left
		}
	}
	for d := depth; d < Depth; d++ {
		proof.Siblings[Depth-1-d] = t.hasher.EmptySubtreeHash(d + 1)
	}

	if depth == Depth && current != t.hasher.EmptySubtreeHash(Depth) {
		value, err := t.loadLeafValue(current, key)
		if err != nil {
			return nil, err
		}
		proof.Value = value
		proof.Included = true
	}
	t.log.Debug("Created proof", "key", key, "included", proof.Included, "root", t.root)
	return proof, nil
}

// Verify checks that the proof is consistent with the given root. Malformed
// proofs are rejected. The final comparison with the root runs in constant
// time.
func (p *Proof) Verify(hasher *Hasher, root common.Hash) bool {
	if p == nil || hasher == nil || len(p.Siblings) != Depth {
		return false
	}
	if p.Included == p.Value.IsEmpty() {
		return false
	}
	current := hasher.EmptySubtreeHash(Depth)
	if p.Included {
		current = hasher.DigestLeaf(p.Key, p.Value)
	}
	for i, sibling := range p.Siblings {
		if p.Key.Bit(Depth-1-i) == 0 {
			current = hasher.DigestNode(current, sibling)
		} else {
			current = hasher.DigestNode(sibling, current)
		}
	}
	return subtle.ConstantTimeCompare(current[:], root[:]) == 1
}

// VerifyProof checks that the proof certifies the given key/value pair under
// the given root. An empty value claims the absence of the key.
func VerifyProof(hasher *Hasher, root common.Hash, key common.Key, value common.Value, proof *Proof) bool {
	if proof == nil || proof.Key != key || proof.Value != value {
		return false
	}
	return proof.Verify(hasher, root)
}

// The encoded form of a proof is
//
//	flag (1) || key (32) || value (32) || bitmap (32) || siblings (32 each)
//
// where flag is 0x01 for inclusion and 0x00 for non-inclusion proofs. Bit i
// of the bitmap, counting from the most significant bit of its first byte,
// is set when Siblings[i] differs from the empty subtree hash of its level.
// Only those siblings are encoded, in index order.

const (
	proofFlagExcluded byte = 0x00
	proofFlagIncluded byte = 0x01
	proofBitmapSize        = Depth / 8
	proofHeaderSize        = 1 + 2*common.HashSize + proofBitmapSize
)

// Encode produces the compact encoding of the proof.
func (p *Proof) Encode(hasher *Hasher) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no proof", ErrInvalidProof)
	}
	if hasher == nil {
		return nil, fmt.Errorf("%w: no hasher", ErrConfiguration)
	}
	if len(p.Siblings) != Depth {
		return nil, fmt.Errorf("%w: proof has %d siblings, expected %d", ErrInvalidProof, len(p.Siblings), Depth)
	}
	var bitmap [proofBitmapSize]byte
	count := 0
	for i, sibling := range p.Siblings {
		if sibling != hasher.EmptySubtreeHash(Depth-i) {
			bitmap[i/8] |= 0x80 >> (i % 8)
			count++
		}
	}

	res := make([]byte, 0, proofHeaderSize+count*common.HashSize)
	if p.Included {
		res = append(res, proofFlagIncluded)
	} else {
		res = append(res, proofFlagExcluded)
	}
	res = append(res, p.Key[:]...)
	res = append(res, p.Value[:]...)
	res = append(res, bitmap[:]...)
	for i, sibling := range p.Siblings {
		if bitmap[i/8]&(0x80>>(i%8)) != 0 {
			res = append(res, sibling[:]...)
		}
	}
	return res, nil
}

// DecodeProof parses the compact encoding of a proof. Siblings omitted in
// the encoding are restored from the hasher's empty subtree hashes.
func DecodeProof(data []byte, hasher *Hasher) (*Proof, error) {
	if hasher == nil {
		return nil, fmt.Errorf("%w: no hasher", ErrConfiguration)
	}
	if len(data) < proofHeaderSize {
		return nil, fmt.Errorf("%w: encoded proof too short, %d bytes", ErrInvalidProof, len(data))
	}
	proof := &Proof{Siblings: make([]common.Hash, Depth)}
	switch data[0] {
	case proofFlagIncluded:
		proof.Included = true
	case proofFlagExcluded:
		proof.Included = false
	default:
		return nil, fmt.Errorf("%w: unknown proof flag 0x%02x", ErrInvalidProof, data[0])
	}
	pos := 1
	copy(proof.Key[:], data[pos:])
	pos += common.HashSize
	copy(proof.Value[:], data[pos:])
	pos += common.HashSize
	bitmap := data[pos : pos+proofBitmapSize]
	pos += proofBitmapSize

	count := 0
	for _, b := range bitmap {
		count += bits.OnesCount8(b)
	}
	if want := proofHeaderSize + count*common.HashSize; len(data) != want {
		return nil, fmt.Errorf("%w: encoded proof has %d bytes, bitmap requires %d", ErrInvalidProof, len(data), want)
	}
	for i := range proof.Siblings {
		if bitmap[i/8]&(0x80>>(i%8)) == 0 {
			proof.Siblings[i] = hasher.EmptySubtreeHash(Depth - i)
			continue
		}
		copy(proof.Siblings[i][:], data[pos:])
		pos += common.HashSize
	}
	return proof, nil
}

func (p *Proof) String() string {
	if p == nil {
		return "no proof"
	}
	kind := "non-inclusion"
	if p.Included {
		kind = "inclusion"
	}
	return fmt.Sprintf("%s proof for key %v with value %v", kind, p.Key, p.Value)
}
