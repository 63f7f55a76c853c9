package tree

import (
	"github.com/mattsolo1/grove-quill/pkg/models"
)

// Node is a single entry in the project tree. Exactly one of Folder, Document
// or Character is set, matching Kind. Only folder nodes have children.
type Node struct {
	Kind      models.Kind
	Folder    *models.Folder
	Document  *models.Document
	Character *models.Character

	Children []*Node
}

// ID returns the id of the wrapped entity.
func (n *Node) ID() string {
	switch n.Kind {
	case models.KindFolder:
		return n.Folder.ID
	case models.KindDocument:
		return n.Document.ID
	case models.KindCharacter:
		return n.Character.ID
	}
	return ""
}

// Name returns the display name (folder/character name or document title).
func (n *Node) Name() string {
	switch n.Kind {
	case models.KindFolder:
		return n.Folder.Name
	case models.KindDocument:
		return n.Document.Title
	case models.KindCharacter:
		return n.Character.Name
	}
	return ""
}

// IsFolder reports whether the node can hold children.
func (n *Node) IsFolder() bool {
	return n.Kind == models.KindFolder
}

// Find returns the node with the given kind and id, or nil.
func Find(nodes []*Node, kind models.Kind, id string) *Node {
	var found *Node
	Walk(nodes, func(n *Node, _ int) bool {
		if n.Kind == kind && n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Walk visits nodes depth-first in tree order. Returning false from fn stops the walk.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// PathTo returns the folder nodes enclosing the target, outermost first. The
// second result is false when the target is not in the tree.
func PathTo(nodes []*Node, kind models.Kind, id string) ([]*Node, bool) {
	for _, n := range nodes {
		if n.Kind == kind && n.ID() == id {
			return nil, true
		}
		if !n.IsFolder() {
			continue
		}
		if path, ok := PathTo(n.Children, kind, id); ok {
			return append([]*Node{n}, path...), true
		}
	}
	return nil, false
}

// Counts tallies the entities below a node.
type Counts struct {
	Folders    int
	Documents  int
	Characters int
}

// Total is the number of descendants.
func (c Counts) Total() int {
	return c.Folders + c.Documents + c.Characters
}

// CountDescendants tallies everything below n, not including n itself.
func CountDescendants(n *Node) Counts {
	var c Counts
	Walk(n.Children, func(child *Node, _ int) bool {
		switch child.Kind {
		case models.KindFolder:
			c.Folders++
		case models.KindDocument:
			c.Documents++
		case models.KindCharacter:
			c.Characters++
		}
		return true
	})
	return c
}
