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
	"errors"
	"strings"
	"testing"

	"github.com/Fantom-foundation/smt/common"
)

func TestProof_InclusionProofsVerify(t *testing.T) {
	for _, algorithm := range allHashAlgorithms {
		t.Run(algorithm.Name, func(t *testing.T) {
			tree, _ := newTestTree(t, Config{Hashing: algorithm})
			entries := randomKeyValues(20, 50)
			root, err := tree.UpdateAll(entries)
			if err != nil {
				t.Fatalf("failed to apply updates: %v", err)
			}
			for _, entry := range entries {
				proof, err := tree.Prove(entry.Key)
				if err != nil {
					t.Fatalf("failed to create proof: %v", err)
				}
				if !proof.Included || proof.Value != entry.Value {
					t.Errorf("unexpected proof content: %v", proof)
				}
				if !VerifyProof(tree.Hasher(), root, entry.Key, entry.Value, proof) {
					t.Errorf("valid inclusion proof rejected for key %v", entry.Key)
				}
			}
		})
	}
}

func TestProof_NonInclusionProofsVerify(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	hasher := tree.Hasher()

	// empty tree
	proof, err := tree.Prove(common.Key{1})
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	if proof.Included {
		t.Errorf("proof of empty tree should not include key")
	}
	if !VerifyProof(hasher, tree.Root(), common.Key{1}, common.EmptyValue, proof) {
		t.Errorf("valid non-inclusion proof rejected")
	}

	root, err := tree.UpdateAll(randomKeyValues(21, 50))
	if err != nil {
		t.Fatalf("failed to apply updates: %v", err)
	}
	for _, entry := range randomKeyValues(22, 20) {
		proof, err := tree.Prove(entry.Key)
		if err != nil {
			t.Fatalf("failed to create proof: %v", err)
		}
		if proof.Included || !proof.Value.IsEmpty() {
			t.Errorf("unexpected proof content: %v", proof)
		}
		if !VerifyProof(hasher, root, entry.Key, common.EmptyValue, proof) {
			t.Errorf("valid non-inclusion proof rejected for key %v", entry.Key)
		}
	}
}

func TestProof_DeletedKeysHaveNonInclusionProofs(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	key := common.Key{0x55}
	mustUpdate(t, tree, key, common.Value{1})
	mustUpdate(t, tree, common.Key{0x56}, common.Value{2})
	root, err := tree.Delete(key)
	if err != nil {
		t.Fatalf("failed to delete key: %v", err)
	}
	proof, err := tree.Prove(key)
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	if !VerifyProof(tree.Hasher(), root, key, common.EmptyValue, proof) {
		t.Errorf("non-inclusion proof of deleted key rejected")
	}
}

func TestProof_SiblingsOfNeighbouringKeys(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	hasher := tree.Hasher()
	a, b := common.Key{31: 0x00}, common.Key{31: 0x01}
	mustUpdate(t, tree, a, common.Value{1})
	mustUpdate(t, tree, b, common.Value{2})

	proof, err := tree.Prove(a)
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	if want, got := hasher.DigestLeaf(b, common.Value{2}), proof.Siblings[0]; want != got {
		t.Errorf("first sibling should be the neighbouring leaf, wanted %v, got %v", want, got)
	}
	for i := 1; i < Depth; i++ {
		if want, got := hasher.EmptySubtreeHash(Depth-i), proof.Siblings[i]; want != got {
			t.Errorf("sibling %d should be empty, wanted %v, got %v", i, want, got)
		}
	}
}

func TestProof_TamperedProofsAreRejected(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	entries := randomKeyValues(23, 10)
	root, err := tree.UpdateAll(entries)
	if err != nil {
		t.Fatalf("failed to apply updates: %v", err)
	}
	hasher := tree.Hasher()
	key, value := entries[0].Key, entries[0].Value

	tests := map[string]func(p *Proof){
		"changed value":      func(p *Proof) { p.Value[0]++ },
		"changed key":        func(p *Proof) { p.Key[31] ^= 1 },
		"changed sibling":    func(p *Proof) { p.Siblings[Depth-1][0]++ },
		"changed leaf level": func(p *Proof) { p.Siblings[0][5]++ },
		"missing sibling":    func(p *Proof) { p.Siblings = p.Siblings[:Depth-1] },
		"extra sibling":      func(p *Proof) { p.Siblings = append(p.Siblings, common.Hash{}) },
		"no siblings":        func(p *Proof) { p.Siblings = nil },
		"excluded flag":      func(p *Proof) { p.Included = false },
		"empty included":     func(p *Proof) { p.Value = common.EmptyValue },
	}

	for name, tamper := range tests {
		t.Run(name, func(t *testing.T) {
			proof, err := tree.Prove(key)
			if err != nil {
				t.Fatalf("failed to create proof: %v", err)
			}
			if !proof.Verify(hasher, root) {
				t.Fatalf("untampered proof should be valid")
			}
			tamper(proof)
			if proof.Verify(hasher, root) {
				t.Errorf("tampered proof was accepted")
			}
			if VerifyProof(hasher, root, key, value, proof) {
				t.Errorf("tampered proof was accepted for original claim")
			}
		})
	}
}

func TestProof_ClaimsMustMatchProof(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	key, value := common.Key{1}, common.Value{2}
	root := mustUpdate(t, tree, key, value)
	proof, err := tree.Prove(key)
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	hasher := tree.Hasher()
	if VerifyProof(hasher, root, key, common.Value{3}, proof) {
		t.Errorf("proof accepted for different value")
	}
	if VerifyProof(hasher, root, key, common.EmptyValue, proof) {
		t.Errorf("inclusion proof accepted as non-inclusion")
	}
	if VerifyProof(hasher, root, common.Key{2}, value, proof) {
		t.Errorf("proof accepted for different key")
	}
	if VerifyProof(hasher, hasher.EmptyRoot(), key, value, proof) {
		t.Errorf("proof accepted for different root")
	}
	if VerifyProof(hasher, root, key, value, nil) {
		t.Errorf("missing proof accepted")
	}
}

func TestProof_ProofsAreBoundToHashAlgorithm(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	key, value := common.Key{1}, common.Value{2}
	root := mustUpdate(t, tree, key, value)
	proof, err := tree.Prove(key)
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	if proof.Verify(newTestHasher(t, Keccak256Hashing), root) {
		t.Errorf("proof accepted with different hash algorithm")
	}
	if proof.Verify(nil, root) {
		t.Errorf("proof accepted without hasher")
	}
}

func TestProof_OutdatedProofsFailForNewRoot(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	key := common.Key{1}
	oldRoot := mustUpdate(t, tree, key, common.Value{1})
	proof, err := tree.Prove(key)
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	newRoot := mustUpdate(t, tree, common.Key{2}, common.Value{2})
	if !proof.Verify(tree.Hasher(), oldRoot) {
		t.Errorf("proof should remain valid for old root")
	}
	if proof.Verify(tree.Hasher(), newRoot) {
		t.Errorf("proof should be invalid for new root")
	}
}

func TestProof_EncodingRoundTrip(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	entries := randomKeyValues(24, 30)
	root, err := tree.UpdateAll(entries)
	if err != nil {
		t.Fatalf("failed to apply updates: %v", err)
	}
	hasher := tree.Hasher()
	keys := []common.Key{entries[0].Key, entries[1].Key, {0xFF}, {}}
	for _, key := range keys {
		proof, err := tree.Prove(key)
		if err != nil {
			t.Fatalf("failed to create proof: %v", err)
		}
		data, err := proof.Encode(hasher)
		if err != nil {
			t.Fatalf("failed to encode proof: %v", err)
		}
		// a tree of 30 keys has only a few non-empty siblings per path
		if len(data) >= proofHeaderSize+Depth*common.HashSize/4 {
			t.Errorf("encoding is not compact, %d bytes", len(data))
		}
		restored, err := DecodeProof(data, hasher)
		if err != nil {
			t.Fatalf("failed to decode proof: %v", err)
		}
		if restored.Key != proof.Key || restored.Value != proof.Value || restored.Included != proof.Included {
			t.Errorf("decoded proof differs, wanted %v, got %v", proof, restored)
		}
		for i := range proof.Siblings {
			if proof.Siblings[i] != restored.Siblings[i] {
				t.Errorf("sibling %d differs, wanted %v, got %v", i, proof.Siblings[i], restored.Siblings[i])
			}
		}
		if !restored.Verify(hasher, root) {
			t.Errorf("decoded proof does not verify")
		}
	}
}

func TestProof_EncodingOfEmptyTreeProofHasNoSiblings(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	proof, err := tree.Prove(common.Key{1})
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	data, err := proof.Encode(tree.Hasher())
	if err != nil {
		t.Fatalf("failed to encode proof: %v", err)
	}
	if want, got := proofHeaderSize, len(data); want != got {
		t.Errorf("unexpected encoding size, wanted %d, got %d", want, got)
	}
	if data[0] != proofFlagExcluded {
		t.Errorf("unexpected flag 0x%02x", data[0])
	}
}

func TestProof_EncodingRejectsMalformedProofs(t *testing.T) {
	hasher := newTestHasher(t, Sha256Hashing)
	proof := &Proof{Siblings: make([]common.Hash, Depth-1)}
	if _, err := proof.Encode(hasher); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("expected invalid proof error, got %v", err)
	}
}

func TestProof_EncodingRequiresProofAndHasher(t *testing.T) {
	hasher := newTestHasher(t, Sha256Hashing)
	var missing *Proof
	if _, err := missing.Encode(hasher); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("expected invalid proof error, got %v", err)
	}
	proof := &Proof{Siblings: make([]common.Hash, Depth)}
	if _, err := proof.Encode(nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	data, err := proof.Encode(hasher)
	if err != nil {
		t.Fatalf("failed to encode proof: %v", err)
	}
	if _, err := DecodeProof(data, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if want, got := "no proof", missing.String(); want != got {
		t.Errorf("unexpected description, wanted %q, got %q", want, got)
	}
}

func TestProof_DecodingRejectsMalformedData(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	mustUpdate(t, tree, common.Key{1}, common.Value{1})
	mustUpdate(t, tree, common.Key{2}, common.Value{2})
	hasher := tree.Hasher()
	proof, err := tree.Prove(common.Key{1})
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	valid, err := proof.Encode(hasher)
	if err != nil {
		t.Fatalf("failed to encode proof: %v", err)
	}
	if len(valid) <= proofHeaderSize {
		t.Fatalf("proof should contain siblings")
	}

	withFlag := func(flag byte) []byte {
		res := append([]byte(nil), valid...)
		res[0] = flag
		return res
	}
	tests := map[string][]byte{
		"empty":           nil,
		"truncated":       valid[:proofHeaderSize-1],
		"missing sibling": valid[:len(valid)-common.HashSize],
		"partial sibling": valid[:len(valid)-1],
		"extra bytes":     append(append([]byte(nil), valid...), 0),
		"unknown flag":    withFlag(2),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeProof(data, hasher); !errors.Is(err, ErrInvalidProof) {
				t.Errorf("expected invalid proof error, got %v", err)
			}
		})
	}
}

func TestProof_DecodedProofWithInconsistentFlagIsRejected(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	key := common.Key{1}
	root := mustUpdate(t, tree, key, common.Value{1})
	proof, err := tree.Prove(key)
	if err != nil {
		t.Fatalf("failed to create proof: %v", err)
	}
	data, err := proof.Encode(tree.Hasher())
	if err != nil {
		t.Fatalf("failed to encode proof: %v", err)
	}
	data[0] = proofFlagExcluded
	decoded, err := DecodeProof(data, tree.Hasher())
	if err != nil {
		t.Fatalf("failed to decode proof: %v", err)
	}
	if decoded.Verify(tree.Hasher(), root) {
		t.Errorf("proof with inconsistent flag accepted")
	}
}

func TestProof_String(t *testing.T) {
	proof := &Proof{Key: common.Key{1}, Value: common.Value{2}, Included: true}
	if got := proof.String(); !strings.HasPrefix(got, "inclusion proof for key") {
		t.Errorf("unexpected string: %s", got)
	}
	proof = &Proof{Key: common.Key{1}}
	if got := proof.String(); !strings.HasPrefix(got, "non-inclusion proof") {
		t.Errorf("unexpected string: %s", got)
	}
}
