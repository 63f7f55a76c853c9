// Package store holds the shared application state for an open project and
// publishes every change to subscribed views.
package store

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/tree"
)

var (
	// ErrUnknownEntity is returned when selecting or editing an entity that is
	// not part of the current state.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrNotSelectable is returned when selecting a folder.
	ErrNotSelectable = errors.New("entity kind cannot be selected")
	// ErrNoBuffer is returned when editing an entity whose buffer is not loaded.
	ErrNoBuffer = errors.New("buffer not loaded")
)

// Change is delivered to subscribers after every state swap.
type Change struct {
	Slices Slice
	State  *State
}

type subscription struct {
	mask Slice
	ch   chan Change
	once sync.Once
}

// Store is the single writer-guarded owner of State. Writes go through the
// methods below; readers take immutable snapshots.
type Store struct {
	mu     sync.RWMutex
	state  *State
	subs   map[*subscription]struct{}
	logger *logrus.Entry
}

// New creates an empty store with no project open.
func New(logger *logrus.Entry) *Store {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Store{
		state:  &State{},
		subs:   make(map[*subscription]struct{}),
		logger: logger.WithField("component", "store"),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers for changes touching any of the given slices. The
// channel holds at most one pending change; when a consumer falls behind the
// pending change is replaced by the newer one, with the slice sets merged.
// Call the returned function to unsubscribe.
func (s *Store) Subscribe(slices Slice) (<-chan Change, func()) {
	sub := &subscription{mask: slices, ch: make(chan Change, 1)}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			close(sub.ch)
			s.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// update applies fn to a copy of the current state and swaps it in when fn
// reports a change. Must not be called with s.mu held.
func (s *Store) update(fn func(next *State) (Slice, error)) (Slice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.state
	changed, err := fn(&next)
	if err != nil || changed == 0 {
		return 0, err
	}
	next.Version = s.state.Version + 1
	s.state = &next

	change := Change{Slices: changed, State: s.state}
	for sub := range s.subs {
		if sub.mask.Has(changed) {
			sub.deliver(change)
		}
	}
	return changed, nil
}

func (sub *subscription) deliver(c Change) {
	for {
		select {
		case sub.ch <- c:
			return
		default:
		}
		select {
		case stale := <-sub.ch:
			c.Slices |= stale.Slices
		default:
		}
	}
}

// SetProject switches to a different project. Entities, tree, selection and
// buffers are cleared; callers refresh entities from the engine afterwards.
func (s *Store) SetProject(path string) {
	_, _ = s.update(func(next *State) (Slice, error) {
		*next = State{ProjectPath: path}
		return SliceAll, nil
	})
	s.logger.WithField("project", path).Debug("project set")
}

// ReplaceEntities swaps in new entity collections and the tree built from
// them in one step. Selection and buffers that point at entities which no
// longer exist are dropped in the same step.
func (s *Store) ReplaceEntities(listing models.Listing) {
	folders := append([]models.Folder(nil), listing.Folders...)
	documents := append([]models.Document(nil), listing.Documents...)
	characters := append([]models.Character(nil), listing.Characters...)
	built := tree.Build(folders, documents, characters)

	changed, _ := s.update(func(next *State) (Slice, error) {
		next.Folders = folders
		next.Documents = documents
		next.Characters = characters
		next.Tree = built
		changed := SliceEntities

		if id := next.Selection.DocumentID; id != "" && !next.Exists(models.KindDocument, id) {
			next.Selection.DocumentID = ""
			changed |= SliceSelection
		}
		if id := next.Selection.CharacterID; id != "" && !next.Exists(models.KindCharacter, id) {
			next.Selection.CharacterID = ""
			changed |= SliceSelection
		}
		if b := next.DocumentBuffer; b != nil && !next.Exists(models.KindDocument, b.DocumentID) {
			next.DocumentBuffer = nil
			changed |= SliceBuffer
		}
		if b := next.CharacterBuffer; b != nil && !next.Exists(models.KindCharacter, b.CharacterID) {
			next.CharacterBuffer = nil
			changed |= SliceBuffer
		}
		return changed, nil
	})

	s.logger.WithFields(logrus.Fields{
		"folders":    len(folders),
		"documents":  len(documents),
		"characters": len(characters),
		"purged":     changed.Has(SliceSelection | SliceBuffer),
	}).Debug("entities replaced")
}

// SetSelection makes the given entity the active one and clears the other
// kind. An empty kind or id clears the selection.
func (s *Store) SetSelection(kind models.Kind, id string) error {
	_, err := s.update(func(next *State) (Slice, error) {
		var sel Selection
		switch {
		case kind == "" || id == "":
		case kind == models.KindDocument || kind == models.KindCharacter:
			if !next.Exists(kind, id) {
				return 0, fmt.Errorf("select %s %s: %w", kind, id, ErrUnknownEntity)
			}
			if kind == models.KindDocument {
				sel.DocumentID = id
			} else {
				sel.CharacterID = id
			}
		default:
			return 0, fmt.Errorf("select %s: %w", kind, ErrNotSelectable)
		}
		if sel == next.Selection {
			return 0, nil
		}
		next.Selection = sel
		return SliceSelection, nil
	})
	return err
}

// LoadDocumentBuffer installs a freshly loaded body as a clean buffer. It is
// ignored, returning false, when the document is no longer selected.
func (s *Store) LoadDocumentBuffer(docID, markdown string) bool {
	changed, _ := s.update(func(next *State) (Slice, error) {
		if next.Selection.DocumentID != docID {
			return 0, nil
		}
		next.DocumentBuffer = &DocumentBuffer{DocumentID: docID, Markdown: markdown}
		return SliceBuffer, nil
	})
	return changed != 0
}

// EditDocument replaces the body of the loaded document buffer and marks it dirty.
func (s *Store) EditDocument(docID, markdown string) error {
	_, err := s.update(func(next *State) (Slice, error) {
		b := next.DocumentBuffer
		if b == nil || b.DocumentID != docID {
			return 0, fmt.Errorf("edit document %s: %w", docID, ErrNoBuffer)
		}
		next.DocumentBuffer = &DocumentBuffer{
			DocumentID: docID,
			Markdown:   markdown,
			Revision:   b.Revision + 1,
			Dirty:      true,
		}
		return SliceBuffer, nil
	})
	return err
}

// MarkDocumentFlushed records a successful save of the given revision. The
// buffer stays dirty when it was edited again while the save was in flight.
func (s *Store) MarkDocumentFlushed(docID string, revision uint64, at time.Time) {
	_, _ = s.update(func(next *State) (Slice, error) {
		next.LastSaved = at
		if b := next.DocumentBuffer; b != nil && b.DocumentID == docID && b.Revision == revision && b.Dirty {
			clean := *b
			clean.Dirty = false
			next.DocumentBuffer = &clean
		}
		return SliceBuffer, nil
	})
}

// LoadCharacterBuffer installs a freshly loaded profile as a clean buffer. It
// is ignored, returning false, when the character is no longer selected.
func (s *Store) LoadCharacterBuffer(charID string, profile models.Profile) bool {
	changed, _ := s.update(func(next *State) (Slice, error) {
		if next.Selection.CharacterID != charID {
			return 0, nil
		}
		next.CharacterBuffer = &CharacterBuffer{CharacterID: charID, Profile: profile.Clone()}
		return SliceBuffer, nil
	})
	return changed != 0
}

// EditCharacter replaces the profile of the loaded character buffer and marks it dirty.
func (s *Store) EditCharacter(charID string, profile models.Profile) error {
	_, err := s.update(func(next *State) (Slice, error) {
		b := next.CharacterBuffer
		if b == nil || b.CharacterID != charID {
			return 0, fmt.Errorf("edit character %s: %w", charID, ErrNoBuffer)
		}
		next.CharacterBuffer = &CharacterBuffer{
			CharacterID: charID,
			Profile:     profile.Clone(),
			Revision:    b.Revision + 1,
			Dirty:       true,
		}
		return SliceBuffer, nil
	})
	return err
}

// MarkCharacterFlushed records a successful save of the given revision.
func (s *Store) MarkCharacterFlushed(charID string, revision uint64, at time.Time) {
	_, _ = s.update(func(next *State) (Slice, error) {
		next.LastSaved = at
		if b := next.CharacterBuffer; b != nil && b.CharacterID == charID && b.Revision == revision && b.Dirty {
			clean := *b
			clean.Dirty = false
			next.CharacterBuffer = &clean
		}
		return SliceBuffer, nil
	})
}

// DropBuffers discards buffers that do not belong to the current selection.
func (s *Store) DropBuffers() {
	_, _ = s.update(func(next *State) (Slice, error) {
		var changed Slice
		if b := next.DocumentBuffer; b != nil && b.DocumentID != next.Selection.DocumentID {
			next.DocumentBuffer = nil
			changed = SliceBuffer
		}
		if b := next.CharacterBuffer; b != nil && b.CharacterID != next.Selection.CharacterID {
			next.CharacterBuffer = nil
			changed = SliceBuffer
		}
		return changed, nil
	})
}
