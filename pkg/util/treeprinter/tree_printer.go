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

package treeprinter

import (
	"fmt"
	"strings"
)

const (
	edgeLinkChr = " │   "
	edgeMidChr  = " ├── "
	edgeLastChr = " └── "
	edgeSpace   = "     "
)

// Node is a handle associated with a specific depth in a tree. See below for
// sample usage.
type Node struct {
	tree *tree
	idx  int
}

type tree struct {
	nodes []treeNode
}

type treeNode struct {
	text     string
	children []int
}

// New creates a tree printer and returns a sentinel node reference which
// should be used to add the root. Sample usage:
//
//	tp := New()
//	root := tp.Child("root")
//	root.Child("child-1")
//	root.Child("child-2").Child("grandchild")
//	root.Child("child-3")
//
//	fmt.Print(tp.String())
//
// Output:
//
//	root
//	 ├── child-1
//	 ├── child-2
//	 │    └── grandchild
//	 └── child-3
func New() Node {
	t := &tree{nodes: []treeNode{{}}}
	return Node{tree: t, idx: 0}
}

// Child adds a node as a child of the given node.
func (n Node) Child(text string) Node {
	t := n.tree
	t.nodes = append(t.nodes, treeNode{text: text})
	idx := len(t.nodes) - 1
	t.nodes[n.idx].children = append(t.nodes[n.idx].children, idx)
	return Node{tree: t, idx: idx}
}

// Childf adds a node as a child of the given node, formatting its text.
func (n Node) Childf(format string, args ...interface{}) Node {
	return n.Child(fmt.Sprintf(format, args...))
}

// String returns the tree as a string.
func (n Node) String() string {
	var buf strings.Builder
	for _, root := range n.tree.nodes[0].children {
		n.tree.format(&buf, root, "", true /* isRoot */, true /* isLast */)
	}
	return buf.String()
}

func (t *tree) format(buf *strings.Builder, idx int, prefix string, isRoot, isLast bool) {
	nd := &t.nodes[idx]
	childPrefix := prefix
	if isRoot {
		buf.WriteString(nd.text)
	} else {
		buf.WriteString(prefix)
		if isLast {
			buf.WriteString(edgeLastChr)
			childPrefix += edgeSpace
		} else {
			buf.WriteString(edgeMidChr)
			childPrefix += edgeLinkChr
		}
		buf.WriteString(nd.text)
	}
	buf.WriteByte('\n')
	for i, child := range nd.children {
		t.format(buf, child, childPrefix, false /* isRoot */, i == len(nd.children)-1)
	}
}
