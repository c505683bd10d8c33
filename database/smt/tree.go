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
	"fmt"
	"sync"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/backend/kvstore/cache"
	"github.com/Fantom-foundation/smt/common"
	"github.com/ethereum/go-ethereum/log"
)

// Tree is a sparse Merkle tree rooted at a single hash. All nodes reachable
// from the root are kept in a content-addressed store. The tree is safe for
// concurrent use; updates are serialized, reads run in parallel.
type Tree struct {
	store  kvstore.Store
	hasher *Hasher
	config Config
	log    log.Logger
	root   common.Hash
	mu     sync.RWMutex

	// obsolete holds ids of nodes no longer reachable from the root which
	// are deleted by the next call to Prune.
	obsolete map[common.Hash]struct{}
}

// KeyValue is a single update applied by UpdateAll.
type KeyValue struct {
	Key   common.Key
	Value common.Value
}

// NewTree creates an empty tree on the given store. The tree takes ownership
// of the store, which is closed together with the tree.
func NewTree(store kvstore.Store, config Config) (*Tree, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no store", ErrConfiguration)
	}
	hasher, err := NewHasher(config.Hashing)
	if err != nil {
		return nil, err
	}
	if config.CacheCapacity < 0 {
		return nil, fmt.Errorf("%w: negative cache capacity %d", ErrConfiguration, config.CacheCapacity)
	}
	if config.CacheCapacity > 0 {
		store = cache.NewStore(store, config.CacheCapacity)
	}
	return &Tree{
		store:    store,
		hasher:   hasher,
		config:   config,
		log:      config.logger(),
		root:     hasher.EmptyRoot(),
		obsolete: map[common.Hash]struct{}{},
	}, nil
}

// OpenTree creates a tree on content previously written to the store. The
// root node needs to be present unless the root is the empty root.
func OpenTree(store kvstore.Store, root common.Hash, config Config) (*Tree, error) {
	tree, err := NewTree(store, config)
	if err != nil {
		return nil, err
	}
	if root != tree.hasher.EmptyRoot() {
		if _, _, err := tree.loadInternal(root, 0); err != nil {
			return nil, fmt.Errorf("failed to open tree at root %v: %w", root, err)
		}
	}
	tree.root = root
	tree.log.Info("Opened tree", "config", config.Name, "hashing", config.Hashing.Name, "root", root)
	return tree, nil
}

// Root returns the current root hash.
func (t *Tree) Root() common.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Hasher returns the hasher used for this tree, as required for verifying proofs.
func (t *Tree) Hasher() *Hasher {
	return t.hasher
}

// HashKey maps arbitrary data to a key using the tree's hash function.
func (t *Tree) HashKey(data []byte) common.Key {
	return common.Key(t.hasher.Digest(data))
}

// HashValue maps arbitrary data to a value using the tree's hash function.
func (t *Tree) HashValue(data []byte) common.Value {
	return common.Value(t.hasher.Digest(data))
}

// Get returns the value stored for the key, or the empty value if the key
// was never set or has been deleted.
func (t *Tree) Get(key common.Key) (common.Value, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	current := t.root
	for depth := 0; depth < Depth; depth++ {
		if current == t.hasher.EmptySubtreeHash(depth) {
			return common.EmptyValue, nil
		}
		left, right, err := t.loadInternal(current, depth)
		if err != nil {
			return common.EmptyValue, err
		}
		if key.Bit(depth) == 0 {
			current = left
		} else {
			current = right
		}
	}
	if current == t.hasher.EmptySubtreeHash(Depth) {
		return common.EmptyValue, nil
	}
	return t.loadLeafValue(current, key)
}

// Update sets the value of the key and returns the new root. Setting the
// empty value deletes the key. If the update fails, the tree keeps its
// previous root.
func (t *Tree) Update(key common.Key, value common.Value) (common.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.update(key, value)
}

// Delete resets the key to the empty value and returns the new root.
func (t *Tree) Delete(key common.Key) (common.Hash, error) {
	return t.Update(key, common.EmptyValue)
}

// UpdateAll applies the given updates in order. Each update is written as
// its own batch; on failure the root of the last successful update is kept
// and the error is returned.
func (t *Tree) UpdateAll(updates []KeyValue) (common.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, update := range updates {
		if _, err := t.update(update.Key, update.Value); err != nil {
			return t.root, fmt.Errorf("update %d of %d failed: %w", i+1, len(updates), err)
		}
	}
	return t.root, nil
}

func (t *Tree) update(key common.Key, value common.Value) (common.Hash, error) {
	// path[d] is the node at depth d on the key's path, siblings[d] the
	// sibling of path[d+1].
	var path [Depth + 1]common.Hash
	var siblings [Depth]common.Hash

	current := t.root
	depth := 0
	for ; depth < Depth; depth++ {
		path[depth] = current
		if current == t.hasher.EmptySubtreeHash(depth) {
			break
		}
		left, right, err := t.loadInternal(current, depth)
		if err != nil {
			return t.root, err
		}
		if key.Bit(depth) == 0 {
			current, siblings[depth] = left, right
		} else {
			current, siblings[depth] = right, left
		}
	}
	for d := depth; d < Depth; d++ {
		path[d] = t.hasher.EmptySubtreeHash(d)
		siblings[d] = t.hasher.EmptySubtreeHash(d + 1)
	}
	if depth < Depth {
		current = t.hasher.EmptySubtreeHash(Depth)
	}
	path[Depth] = current

	oldValue := common.EmptyValue
	if current != t.hasher.EmptySubtreeHash(Depth) {
		var err error
		oldValue, err = t.loadLeafValue(current, key)
		if err != nil {
			return t.root, err
		}
	}
	if oldValue == value {
		return t.root, nil
	}

	entries := make([]kvstore.Entry, 0, Depth+1)
	if value.IsEmpty() {
		current = t.hasher.EmptySubtreeHash(Depth)
	} else {
		current = t.hasher.DigestLeaf(key, value)
		entries = append(entries, kvstore.Entry{Id: current, Payload: EncodeLeaf(key, value)})
	}
	for d := Depth - 1; d >= 0; d-- {
		var left, right common.Hash
		if key.Bit(d) == 0 {
			left, right = current, siblings[d]
		} else {
			left, right = siblings[d], current
		}
		empty := t.hasher.EmptySubtreeHash(d + 1)
		if left == empty && right == empty {
			current = t.hasher.EmptySubtreeHash(d)
			continue
		}
		current = t.hasher.DigestNode(left, right)
		entries = append(entries, kvstore.Entry{Id: current, Payload: EncodeInternal(left, right)})
	}

	if len(entries) > 0 {
		if err := t.store.SetBatch(entries); err != nil {
			return t.root, fmt.Errorf("%w: failed to write %d nodes: %w", ErrStorage, len(entries), err)
		}
	}
	t.root = current
	t.log.Debug("Updated key", "key", key, "root", current, "written", len(entries))

	if t.config.Prune {
		t.markObsolete(path[:], entries)
	}
	return current, nil
}

// markObsolete records the nodes of the old path which are not part of the
// new path for deletion by Prune. Written nodes are removed from the record
// since an earlier update may have marked the same content obsolete.
func (t *Tree) markObsolete(oldPath []common.Hash, written []kvstore.Entry) {
	retained := make(map[common.Hash]struct{}, len(written))
	for _, entry := range written {
		retained[entry.Id] = struct{}{}
		delete(t.obsolete, entry.Id)
	}
	for depth, id := range oldPath {
		if id == t.hasher.EmptySubtreeHash(depth) {
			continue
		}
		if _, found := retained[id]; found {
			continue
		}
		t.obsolete[id] = struct{}{}
	}
}

// Prune deletes the nodes which became unreachable through updates since
// the last call. Nodes are only recorded if pruning is enabled in the
// configuration. Callers keeping a durable reference to the root should
// persist the current root before pruning, since pruned nodes may be part
// of older roots. Nodes which failed to be deleted are kept for the next call.
func (t *Tree) Prune() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	pruned := 0
	for id := range t.obsolete {
		if err := t.store.Delete(id); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(t.obsolete, id)
		pruned++
	}
	if err := errors.Join(errs...); err != nil {
		t.log.Warn("Failed to prune outdated nodes", "root", t.root, "failed", len(errs), "err", err)
		return fmt.Errorf("%w: failed to prune %d nodes: %w", ErrStorage, len(errs), err)
	}
	t.log.Debug("Pruned outdated nodes", "root", t.root, "pruned", pruned)
	return nil
}

func (t *Tree) load(id common.Hash, depth int) ([]byte, error) {
	payload, err := t.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load node %v: %w", ErrStorage, id, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: missing node %v at depth %d", ErrCorruptData, id, depth)
	}
	return payload, nil
}

func (t *Tree) loadInternal(id common.Hash, depth int) (common.Hash, common.Hash, error) {
	payload, err := t.load(id, depth)
	if err != nil {
		return common.Hash{}, common.Hash{}, err
	}
	left, right, err := DecodeInternal(payload)
	if err != nil {
		return left, right, fmt.Errorf("node %v at depth %d: %w", id, depth, err)
	}
	return left, right, nil
}

// loadLeafValue loads the leaf at the end of the key's path and checks that
// it belongs to the key.
func (t *Tree) loadLeafValue(id common.Hash, key common.Key) (common.Value, error) {
	payload, err := t.load(id, Depth)
	if err != nil {
		return common.EmptyValue, err
	}
	storedKey, value, err := DecodeLeaf(payload)
	if err != nil {
		return common.EmptyValue, fmt.Errorf("leaf %v: %w", id, err)
	}
	if storedKey != key {
		return common.EmptyValue, fmt.Errorf("%w: leaf %v on path of key %v holds key %v", ErrCorruptData, id, key, storedKey)
	}
	return value, nil
}

// Verify checks the consistency of all nodes reachable from the current
// root. Updates are blocked while the check is running.
func (t *Tree) Verify(observer VerificationObserver) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return VerifyTree(t.store, t.root, t.hasher, observer)
}

// GetStatistics counts the nodes reachable from the current root.
func (t *Tree) GetStatistics() (TreeStatistics, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return GetTreeStatistics(t.store, t.root, t.hasher)
}

// Flush flushes the underlying store.
func (t *Tree) Flush() error {
	if err := t.store.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Close flushes and closes the underlying store.
func (t *Tree) Close() error {
	return errors.Join(t.Flush(), t.store.Close())
}

// GetMemoryFootprint provides the size of the tree and its store in memory.
func (t *Tree) GetMemoryFootprint() *common.MemoryFootprint {
	t.mu.RLock()
	obsolete := uintptr(len(t.obsolete))
	t.mu.RUnlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*t) + unsafe.Sizeof(*t.hasher))
	mf.AddChild("obsolete", common.NewMemoryFootprint(obsolete*unsafe.Sizeof(common.Hash{})))
	mf.AddChild("store", t.store.GetMemoryFootprint())
	return mf
}
