// Package pathtree turns slash-delimited widget tree paths into a folder
// hierarchy.
//
// Folders are created lazily the first time a path prefix is seen and are
// shared by every later widget with the same prefix. A folder's ID is derived
// from its normalized prefix path plus the tree's suffix:
//
//	t := pathtree.New("_local")
//	n := t.Place("Layout/Hero Blocks") // n.ID == "/layout/heroblocks_local"
//
// Widgets without a tree path land in a single "Uncategorized" folder with
// ID "other" + suffix. Trees built with different suffixes never share IDs.
//
// A Tree is not safe for concurrent use.
package pathtree

import (
	"strings"
)

// UncategorizedLabel is the label of the folder holding widgets without a
// tree path.
const UncategorizedLabel = "Uncategorized"

// Node is a folder in the tree.
type Node struct {
	ID       string
	Label    string
	Parent   *Node
	Children []*Node

	// IsLeafContainer is set once a widget has been placed directly in
	// this node.
	IsLeafContainer bool

	// Widgets holds the IDs of widgets attached to this node, in
	// attachment order.
	Widgets []string
}

// Path returns the labels from the first folder below the root down to n.
func (n *Node) Path() []string {
	var labels []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		labels = append(labels, cur.Label)
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}

// Tree is one namespace root and its folders.
type Tree struct {
	suffix string
	root   *Node
	nodes  map[string]*Node
}

// New creates an empty tree. suffix keeps the IDs of this tree apart from
// those of other trees, e.g. "_local" and "_remote".
func New(suffix string) *Tree {
	root := &Node{ID: "root" + suffix}
	return &Tree{
		suffix: suffix,
		root:   root,
		nodes:  map[string]*Node{root.ID: root},
	}
}

// Suffix returns the suffix the tree was created with.
func (t *Tree) Suffix() string {
	return t.suffix
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Place returns the folder for treePath, creating missing folders along the
// way. Placing the same path twice returns the same node.
func (t *Tree) Place(treePath string) *Node {
	segments := Segments(treePath)
	if len(segments) == 0 {
		return t.child(t.root, "other"+t.suffix, UncategorizedLabel)
	}

	parent := t.root
	var prefix strings.Builder
	for _, seg := range segments {
		prefix.WriteByte('/')
		prefix.WriteString(normalize(seg))
		parent = t.child(parent, prefix.String()+t.suffix, seg)
	}
	return parent
}

// Attach places treePath and records widgetID in the resulting folder.
// Attaching the same widget to the same folder twice records it once.
func (t *Tree) Attach(treePath, widgetID string) *Node {
	n := t.Place(treePath)
	n.IsLeafContainer = true
	for _, id := range n.Widgets {
		if id == widgetID {
			return n
		}
	}
	n.Widgets = append(n.Widgets, widgetID)
	return n
}

// Lookup returns the node with the given ID.
func (t *Tree) Lookup(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of folders, not counting the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Walk visits every node depth-first in insertion order, starting with the
// root. depth is 0 for the root. Returning false from fn skips the node's
// children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	walk(t.root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

func (t *Tree) child(parent *Node, id, label string) *Node {
	if n, ok := t.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Label: label, Parent: parent}
	parent.Children = append(parent.Children, n)
	t.nodes[id] = n
	return n
}

// Segments splits a tree path on "/" and drops blank segments. Labels are
// trimmed of surrounding whitespace.
func Segments(treePath string) []string {
	var out []string
	for _, part := range strings.Split(treePath, "/") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalize(segment string) string {
	return strings.ReplaceAll(strings.ToLower(segment), " ", "")
}
