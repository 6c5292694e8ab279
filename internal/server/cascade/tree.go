// Package cascade models the dependents of an entity as an arena keyed by
// NodeRef. Services fill a Tree by walking parent references downwards,
// validate it, and then delete in post-order so no child outlives its
// parent.
package cascade

import (
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

// Kind is the type of a node in the tree.
type Kind string

const (
	KindAsset     Kind = "asset"
	KindAccess    Kind = "access"
	KindEquipment Kind = "equipment"
	KindTask      Kind = "task"
	KindEntry     Kind = "entry"
	KindImage     Kind = "image"
)

// Kinds lists every kind, parents before children.
var Kinds = []Kind{KindAsset, KindAccess, KindEquipment, KindTask, KindEntry, KindImage}

// KindOf maps an image parent kind to a node kind.
func KindOf(k models.ParentKind) Kind {
	return Kind(k)
}

// NodeRef identifies a node.
type NodeRef struct {
	Kind Kind
	ID   string
}

func (r NodeRef) String() string { return string(r.Kind) + ":" + r.ID }

// Node is one entity scheduled for deletion.
type Node struct {
	Ref    NodeRef
	Parent NodeRef
	// StorageKey is set for images.
	StorageKey string
	// AssetID and UserID are set for access links.
	AssetID string
	UserID  string
}

// allowedParents encodes the containment hierarchy.
var allowedParents = map[Kind][]Kind{
	KindAccess:    {KindAsset},
	KindEquipment: {KindAsset},
	KindTask:      {KindEquipment},
	KindEntry:     {KindTask, KindEquipment},
	KindImage:     {KindAsset, KindEquipment, KindTask, KindEntry},
}

// Tree is an arena of nodes rooted at one entity.
type Tree struct {
	root     NodeRef
	nodes    map[NodeRef]*Node
	children map[NodeRef][]NodeRef
	order    []NodeRef
}

// New creates a tree containing only root.
func New(root NodeRef) *Tree {
	t := &Tree{
		root:     root,
		nodes:    map[NodeRef]*Node{root: {Ref: root}},
		children: map[NodeRef][]NodeRef{},
		order:    []NodeRef{root},
	}
	return t
}

// Root returns the root reference.
func (t *Tree) Root() NodeRef { return t.root }

// Add inserts n under n.Parent. The parent does not have to be present
// yet; Validate reports parents that never show up. Adding the same ref
// twice is an error.
func (t *Tree) Add(n Node) error {
	if _, ok := t.nodes[n.Ref]; ok {
		return fmt.Errorf("duplicate node %s", n.Ref)
	}
	node := n
	t.nodes[n.Ref] = &node
	t.children[n.Parent] = append(t.children[n.Parent], n.Ref)
	t.order = append(t.order, n.Ref)
	return nil
}

// Get returns the node for ref.
func (t *Tree) Get(ref NodeRef) (*Node, bool) {
	n, ok := t.nodes[ref]
	return n, ok
}

// Len is the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Validate checks that every non-root node has a parent of an allowed kind
// inside the tree. A failure is an invariant violation.
func (t *Tree) Validate() error {
	for _, ref := range t.order {
		if ref == t.root {
			continue
		}
		n := t.nodes[ref]

		if !allowed(ref.Kind, n.Parent.Kind) {
			return common.NewInvariantError(string(ref.Kind), ref.ID,
				fmt.Sprintf("parent %s is not a valid container", n.Parent))
		}
		if _, ok := t.nodes[n.Parent]; !ok {
			return common.NewInvariantError(string(ref.Kind), ref.ID,
				fmt.Sprintf("parent %s does not resolve", n.Parent))
		}
	}
	return nil
}

func allowed(child, parent Kind) bool {
	for _, k := range allowedParents[child] {
		if k == parent {
			return true
		}
	}
	return false
}

// PostOrder returns all nodes reachable from the root, every child before
// its parent. Siblings keep insertion order.
func (t *Tree) PostOrder() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	visited := make(map[NodeRef]bool, len(t.nodes))

	var walk func(ref NodeRef)
	walk = func(ref NodeRef) {
		if visited[ref] {
			return
		}
		visited[ref] = true
		for _, c := range t.children[ref] {
			walk(c)
		}
		out = append(out, t.nodes[ref])
	}
	walk(t.root)

	return out
}

// OfKind returns the nodes of kind k in insertion order.
func (t *Tree) OfKind(k Kind) []*Node {
	var out []*Node
	for _, ref := range t.order {
		if ref.Kind == k {
			out = append(out, t.nodes[ref])
		}
	}
	return out
}

// Counts returns the number of nodes per kind.
func (t *Tree) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for ref := range t.nodes {
		counts[ref.Kind]++
	}
	return counts
}
