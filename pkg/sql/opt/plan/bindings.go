// Copyright 2026 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package plan

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// Binding locates the row of a bound column source: the row occupies
// binding slot Slot, and its columns start at field Offset.
type Binding struct {
	Slot   int
	Offset int
}

type boundSource struct {
	src ColumnSource
	Binding
}

// Bindings records, for each column source evaluated on the outer side of a
// map, where its current row is made available to the map's inner side.
// Slots below the statement's parameter count hold the parameters.
type Bindings struct {
	sources map[NodeID]boundSource
}

// Reset removes every binding.
func (b *Bindings) Reset() {
	b.sources = nil
}

// Bind records that the row of src is available at the given slot and
// field offset.
func (b *Bindings) Bind(src ColumnSource, slot, offset int) {
	if b.sources == nil {
		b.sources = make(map[NodeID]boundSource)
	}
	b.sources[src.ID()] = boundSource{src: src, Binding: Binding{Slot: slot, Offset: offset}}
}

// Lookup returns the binding of a source.
func (b *Bindings) Lookup(src ColumnSource) (Binding, bool) {
	bs, ok := b.sources[src.ID()]
	return bs.Binding, ok
}

// Resolve returns the slot and field through which col is read by
// expressions evaluated inside a map. ok is false if col's source is not
// bound.
func (b *Bindings) Resolve(col *ColumnExpr) (slot, field int, ok bool) {
	bs, ok := b.sources[col.Source.ID()]
	if !ok {
		return 0, 0, false
	}
	return bs.Slot, bs.Offset + col.Position, true
}

// Len returns the number of bound sources.
func (b *Bindings) Len() int { return len(b.sources) }

// String lists the bindings ordered by slot and offset.
func (b *Bindings) String() string {
	ids := maps.Keys(b.sources)
	sort.Slice(ids, func(i, j int) bool {
		bi, bj := b.sources[ids[i]], b.sources[ids[j]]
		if bi.Slot != bj.Slot {
			return bi.Slot < bj.Slot
		}
		return bi.Offset < bj.Offset
	})
	var sb strings.Builder
	for _, id := range ids {
		bs := b.sources[id]
		fmt.Fprintf(&sb, "slot %d offset %d: %s\n", bs.Slot, bs.Offset, bs.src.SourceName())
	}
	return sb.String()
}
