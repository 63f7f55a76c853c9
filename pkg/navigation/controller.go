// Package navigation decides which entity is active and which folders are
// open in the current tree view.
package navigation

import (
	"sync"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/store"
	"github.com/mattsolo1/grove-quill/pkg/tree"
)

// Controller wraps the store's selection and keeps folder expansion state.
// Expansion lives only as long as the controller's view; it is never saved.
type Controller struct {
	store *store.Store

	mu       sync.RWMutex
	expanded map[string]bool
}

// New creates a controller with every folder collapsed.
func New(s *store.Store) *Controller {
	return &Controller{
		store:    s,
		expanded: make(map[string]bool),
	}
}

// SelectDocument makes a document the active entity.
func (c *Controller) SelectDocument(id string) error {
	return c.store.SetSelection(models.KindDocument, id)
}

// SelectCharacter makes a character the active entity.
func (c *Controller) SelectCharacter(id string) error {
	return c.store.SetSelection(models.KindCharacter, id)
}

// Select dispatches on kind. Selecting a folder toggles it instead.
func (c *Controller) Select(kind models.Kind, id string) error {
	if kind == models.KindFolder {
		c.Toggle(id)
		return nil
	}
	return c.store.SetSelection(kind, id)
}

// DeselectAll clears the active entity.
func (c *Controller) DeselectAll() {
	_ = c.store.SetSelection("", "")
}

// IsExpanded reports whether a folder is open.
func (c *Controller) IsExpanded(folderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expanded[folderID]
}

// Expand opens a folder.
func (c *Controller) Expand(folderID string) {
	if folderID == "" || folderID == models.RootID {
		return
	}
	c.mu.Lock()
	c.expanded[folderID] = true
	c.mu.Unlock()
}

// Collapse closes a folder.
func (c *Controller) Collapse(folderID string) {
	c.mu.Lock()
	delete(c.expanded, folderID)
	c.mu.Unlock()
}

// Toggle flips a folder between open and closed.
func (c *Controller) Toggle(folderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expanded[folderID] {
		delete(c.expanded, folderID)
	} else {
		c.expanded[folderID] = true
	}
}

// ExpandAll opens every folder currently in the store.
func (c *Controller) ExpandAll() {
	st := c.store.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range st.Folders {
		c.expanded[f.ID] = true
	}
}

// CollapseAll closes every folder.
func (c *Controller) CollapseAll() {
	c.mu.Lock()
	c.expanded = make(map[string]bool)
	c.mu.Unlock()
}

// Reveal opens every folder enclosing the given entity so it becomes visible.
func (c *Controller) Reveal(kind models.Kind, id string) {
	path, ok := tree.PathTo(c.store.Snapshot().Tree, kind, id)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range path {
		c.expanded[n.ID()] = true
	}
}

// Reset forgets all expansion state. Used when a different project is opened.
func (c *Controller) Reset() {
	c.CollapseAll()
}

// VisibleRows flattens the current tree according to the expansion state.
func (c *Controller) VisibleRows() []tree.Row {
	st := c.store.Snapshot()
	return tree.Flatten(st.Tree, c.IsExpanded)
}
