package tree

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

// Build turns flat entity collections into a sorted forest. Entities whose
// parent is missing, unknown or part of a parent cycle are placed at the root.
// The inputs are not modified, and equal inputs always yield equal trees.
func Build(folders []models.Folder, documents []models.Document, characters []models.Character) []*Node {
	b := newBuilder(folders, documents, characters)

	roots := b.children(models.RootID)

	// Folders never reached from the root sit on a parent cycle. Lift them to
	// the root in a stable order; the first one lifted breaks its cycle.
	var stranded []*models.Folder
	for i := range b.folders {
		if !b.placed[b.folders[i].ID] {
			stranded = append(stranded, &b.folders[i])
		}
	}
	sort.SliceStable(stranded, func(i, j int) bool {
		return b.less(&Node{Kind: models.KindFolder, Folder: stranded[i]}, &Node{Kind: models.KindFolder, Folder: stranded[j]})
	})
	for _, f := range stranded {
		if b.placed[f.ID] {
			continue
		}
		roots = append(roots, b.folderNode(f))
	}

	b.sortNodes(roots)
	return roots
}

type builder struct {
	folders []models.Folder
	known   map[string]bool

	foldersByParent    map[string][]*models.Folder
	documentsByFolder  map[string][]*models.Document
	charactersByFolder map[string][]*models.Character

	placed   map[string]bool
	collator *collate.Collator
}

func newBuilder(folders []models.Folder, documents []models.Document, characters []models.Character) *builder {
	b := &builder{
		folders:            append([]models.Folder(nil), folders...),
		known:              make(map[string]bool, len(folders)),
		foldersByParent:    make(map[string][]*models.Folder),
		documentsByFolder:  make(map[string][]*models.Document),
		charactersByFolder: make(map[string][]*models.Character),
		placed:             make(map[string]bool, len(folders)),
		collator:           collate.New(language.English),
	}
	for _, f := range b.folders {
		b.known[f.ID] = true
	}

	for i := range b.folders {
		f := &b.folders[i]
		key := b.bucket(f.ParentID)
		b.foldersByParent[key] = append(b.foldersByParent[key], f)
	}
	for i := range documents {
		d := documents[i]
		key := b.bucket(d.FolderID)
		b.documentsByFolder[key] = append(b.documentsByFolder[key], &d)
	}
	for i := range characters {
		c := characters[i]
		key := b.bucket(c.FolderID)
		b.charactersByFolder[key] = append(b.charactersByFolder[key], &c)
	}
	return b
}

// bucket resolves a parent reference; anything that does not name a known
// folder belongs to the root.
func (b *builder) bucket(parentID string) string {
	if models.IsRoot(parentID) || !b.known[parentID] {
		return models.RootID
	}
	return parentID
}

func (b *builder) children(parentKey string) []*Node {
	var nodes []*Node
	for _, f := range b.foldersByParent[parentKey] {
		if b.placed[f.ID] {
			continue
		}
		nodes = append(nodes, b.folderNode(f))
	}
	for _, d := range b.documentsByFolder[parentKey] {
		nodes = append(nodes, &Node{Kind: models.KindDocument, Document: d})
	}
	for _, c := range b.charactersByFolder[parentKey] {
		nodes = append(nodes, &Node{Kind: models.KindCharacter, Character: c})
	}
	b.sortNodes(nodes)
	return nodes
}

func (b *builder) folderNode(f *models.Folder) *Node {
	b.placed[f.ID] = true
	node := &Node{Kind: models.KindFolder, Folder: f}
	node.Children = b.children(f.ID)
	return node
}

func (b *builder) sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return b.less(nodes[i], nodes[j])
	})
}

// less orders folders first, then by collated name. Ties fall back to raw
// byte order, then kind, then id, so the order is total.
func (b *builder) less(x, y *Node) bool {
	if rx, ry := rank(x.Kind), rank(y.Kind); rx != ry {
		return rx < ry
	}
	xn, yn := x.Name(), y.Name()
	if c := b.collator.CompareString(xn, yn); c != 0 {
		return c < 0
	}
	if xn != yn {
		return xn < yn
	}
	if x.Kind != y.Kind {
		return x.Kind == models.KindDocument
	}
	return x.ID() < y.ID()
}

func rank(k models.Kind) int {
	if k == models.KindFolder {
		return 0
	}
	return 1
}
