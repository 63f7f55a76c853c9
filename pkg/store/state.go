package store

import (
	"time"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/tree"
)

// Slice names a part of the state that consumers can subscribe to.
type Slice uint8

const (
	SliceProject Slice = 1 << iota
	SliceEntities
	SliceSelection
	SliceBuffer

	SliceAll = SliceProject | SliceEntities | SliceSelection | SliceBuffer
)

// Has reports whether s includes any of the given slices.
func (s Slice) Has(other Slice) bool {
	return s&other != 0
}

// Selection holds the active entity. At most one field is non-empty.
type Selection struct {
	DocumentID  string
	CharacterID string
}

// Active returns the kind and id of the selected entity, or empty values.
func (s Selection) Active() (models.Kind, string) {
	switch {
	case s.DocumentID != "":
		return models.KindDocument, s.DocumentID
	case s.CharacterID != "":
		return models.KindCharacter, s.CharacterID
	}
	return "", ""
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return s.DocumentID == "" && s.CharacterID == ""
}

// DocumentBuffer is the in-memory body of a document being edited.
type DocumentBuffer struct {
	DocumentID string
	Markdown   string
	Revision   uint64
	Dirty      bool
}

// CharacterBuffer is the in-memory profile of a character being edited.
type CharacterBuffer struct {
	CharacterID string
	Profile     models.Profile
	Revision    uint64
	Dirty       bool
}

// State is an immutable snapshot of the application state. Consumers must
// treat every field, including slices and buffers, as read-only.
type State struct {
	Version     uint64
	ProjectPath string

	Folders    []models.Folder
	Documents  []models.Document
	Characters []models.Character
	Tree       []*tree.Node

	Selection       Selection
	DocumentBuffer  *DocumentBuffer
	CharacterBuffer *CharacterBuffer
	LastSaved       time.Time
}

// HasProject reports whether a project is open.
func (s *State) HasProject() bool {
	return s.ProjectPath != ""
}

// Folder looks up a folder by id.
func (s *State) Folder(id string) (models.Folder, bool) {
	for _, f := range s.Folders {
		if f.ID == id {
			return f, true
		}
	}
	return models.Folder{}, false
}

// Document looks up a document by id.
func (s *State) Document(id string) (models.Document, bool) {
	for _, d := range s.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return models.Document{}, false
}

// Character looks up a character by id.
func (s *State) Character(id string) (models.Character, bool) {
	for _, c := range s.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return models.Character{}, false
}

// Exists reports whether an entity of the given kind is present.
func (s *State) Exists(kind models.Kind, id string) bool {
	var ok bool
	switch kind {
	case models.KindFolder:
		_, ok = s.Folder(id)
	case models.KindDocument:
		_, ok = s.Document(id)
	case models.KindCharacter:
		_, ok = s.Character(id)
	}
	return ok
}

// ActiveDocumentBuffer returns the document buffer if it belongs to the
// selected document.
func (s *State) ActiveDocumentBuffer() (*DocumentBuffer, bool) {
	b := s.DocumentBuffer
	if b == nil || s.Selection.DocumentID == "" || b.DocumentID != s.Selection.DocumentID {
		return nil, false
	}
	return b, true
}

// ActiveCharacterBuffer returns the character buffer if it belongs to the
// selected character.
func (s *State) ActiveCharacterBuffer() (*CharacterBuffer, bool) {
	b := s.CharacterBuffer
	if b == nil || s.Selection.CharacterID == "" || b.CharacterID != s.Selection.CharacterID {
		return nil, false
	}
	return b, true
}

// Listing returns the entity collections as a models.Listing.
func (s *State) Listing() models.Listing {
	return models.Listing{
		Folders:    s.Folders,
		Documents:  s.Documents,
		Characters: s.Characters,
	}
}
