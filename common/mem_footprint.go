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
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemoryFootprint describes the memory consumption of a store or tree and
// its components.
type MemoryFootprint struct {
	value    uintptr
	children map[string]*MemoryFootprint
	note     string
}

// NewMemoryFootprint creates a footprint for a structure using value bytes
// itself, excluding its components.
func NewMemoryFootprint(value uintptr) *MemoryFootprint {
	return &MemoryFootprint{
		value:    value,
		children: make(map[string]*MemoryFootprint),
	}
}

// AddChild attaches the footprint of a named component. Nil children are ignored.
func (mf *MemoryFootprint) AddChild(name string, child *MemoryFootprint) {
	if child == nil {
		return
	}
	mf.children[name] = child
}

// GetChild returns the footprint of the named component or nil.
func (mf *MemoryFootprint) GetChild(name string) *MemoryFootprint {
	return mf.children[name]
}

func (mf *MemoryFootprint) SetNote(note string) {
	mf.note = note
}

// Value provides the bytes used by the structure itself.
func (mf *MemoryFootprint) Value() uintptr {
	return mf.value
}

// Total provides the bytes used by the structure including all components.
// Components reachable through more than one path are counted once.
func (mf *MemoryFootprint) Total() uintptr {
	return mf.total(map[*MemoryFootprint]struct{}{})
}

func (mf *MemoryFootprint) total(seen map[*MemoryFootprint]struct{}) uintptr {
	if _, found := seen[mf]; found {
		return 0
	}
	seen[mf] = struct{}{}
	res := mf.value
	for _, child := range mf.children {
		res += child.total(seen)
	}
	return res
}

func (mf *MemoryFootprint) String() string {
	var sb strings.Builder
	mf.write(&sb, ".", map[*MemoryFootprint]struct{}{})
	return sb.String()
}

func (mf *MemoryFootprint) write(sb *strings.Builder, path string, visited map[*MemoryFootprint]struct{}) {
	if _, found := visited[mf]; found {
		return
	}
	visited[mf] = struct{}{}
	fmt.Fprintf(sb, "%s %s", formatMemoryAmount(mf.Total()), path)
	if mf.note != "" {
		fmt.Fprintf(sb, " (%s)", mf.note)
	}
	sb.WriteRune('\n')
	names := maps.Keys(mf.children)
	slices.Sort(names)
	for _, name := range names {
		mf.children[name].write(sb, path+"/"+name, visited)
	}
}

func formatMemoryAmount(bytes uintptr) string {
	const unit = 1024
	const prefixes = "KMGTPE"
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := uint64(bytes) / unit; n >= unit && exp+1 < len(prefixes); n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), prefixes[exp])
}
