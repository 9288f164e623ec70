package catalog

import "fmt"

// Node is a read-only view over one category in the merchandising tree.
// The tree is owned by the storefront catalog; the exporter never
// mutates it.
type Node interface {
	ID() string
	DisplayName() string
	Subcategories() []Node
	Parent() Node
}

// Provider hands out the catalog root and resolves categories by id.
// The root itself carries no displayed name; breadcrumbs start at its
// children.
type Provider interface {
	Root() (Node, error)
	ByID(id string) (Node, bool)
}

type treeNode struct {
	id       string
	name     string
	parent   *treeNode
	children []*treeNode
}

func (n *treeNode) ID() string          { return n.id }
func (n *treeNode) DisplayName() string { return n.name }

func (n *treeNode) Subcategories() []Node {
	subs := make([]Node, len(n.children))
	for i, c := range n.children {
		subs[i] = c
	}
	return subs
}

func (n *treeNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Tree is an in-memory category tree assembled from flat rows.
type Tree struct {
	root *treeNode
	byID map[string]*treeNode
}

// Root implements Provider.
func (t *Tree) Root() (Node, error) {
	if t == nil || t.root == nil {
		return nil, fmt.Errorf("catalog tree is empty")
	}
	return t.root, nil
}

// ByID implements Provider.
func (t *Tree) ByID(id string) (Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// Row is one category record as stored by the catalog database.
// ParentID is empty for top-level categories.
type Row struct {
	ID       string
	ParentID string
	Name     string
	Position int
}

// RootID is the synthetic id of the tree root.
const RootID = "root"

// BuildTree links flat category rows into a Tree. Rows arrive in
// position order from the repository; children keep that order.
// Rows referencing a missing parent, the root id, or themselves are
// attached under the root so a partial catalog read still produces a
// usable tree.
func BuildTree(rows []Row) *Tree {
	root := &treeNode{id: RootID}
	nodes := make(map[string]*treeNode, len(rows)+1)
	nodes[RootID] = root

	for _, r := range rows {
		nodes[r.ID] = &treeNode{id: r.ID, name: r.Name}
	}

	for _, r := range rows {
		child := nodes[r.ID]
		parent, ok := nodes[r.ParentID]
		if !ok || r.ParentID == "" || r.ParentID == r.ID {
			parent = root
		}
		child.parent = parent
		parent.children = append(parent.children, child)
	}

	return &Tree{root: root, byID: nodes}
}
