package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattsolo1/grove-quill/pkg/frontmatter"
	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
	"github.com/mattsolo1/grove-quill/pkg/store"
)

// ErrAmbiguous is returned when a name matches more than one entity.
var ErrAmbiguous = errors.New("ambiguous reference")

// FindEntity resolves ref, an id or a case-insensitive name, to an entity
// of the given kind in the open project.
func (s *Service) FindEntity(kind models.Kind, ref string) (string, error) {
	st := s.Store.Snapshot()
	if !st.HasProject() {
		return "", mutation.ErrNoProject
	}
	if ref == "" || models.IsRoot(ref) {
		if kind == models.KindFolder {
			return models.RootID, nil
		}
		return "", fmt.Errorf("%s reference is empty: %w", kind, store.ErrUnknownEntity)
	}
	if st.Exists(kind, ref) {
		return ref, nil
	}

	var matches []string
	switch kind {
	case models.KindFolder:
		for _, f := range st.Folders {
			if strings.EqualFold(f.Name, ref) {
				matches = append(matches, f.ID)
			}
		}
	case models.KindDocument:
		for _, d := range st.Documents {
			if strings.EqualFold(d.Title, ref) {
				matches = append(matches, d.ID)
			}
		}
	case models.KindCharacter:
		for _, c := range st.Characters {
			if strings.EqualFold(c.Name, ref) {
				matches = append(matches, c.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", kind, ref, store.ErrUnknownEntity)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s %q matches %d entries, use an id: %w", kind, ref, len(matches), ErrAmbiguous)
	}
}

// Activate selects an entity and loads its buffer synchronously.
func (s *Service) Activate(ctx context.Context, kind models.Kind, id string) error {
	if err := s.Nav.Select(kind, id); err != nil {
		return err
	}
	s.Nav.Reveal(kind, id)
	_, err := s.Autosave.Sync(ctx)
	return err
}

// ReadDocument returns the body of a document through its editor buffer.
func (s *Service) ReadDocument(ctx context.Context, id string) (string, error) {
	if err := s.Activate(ctx, models.KindDocument, id); err != nil {
		return "", err
	}
	b, ok := s.Store.Snapshot().ActiveDocumentBuffer()
	if !ok {
		return "", fmt.Errorf("document %s: %w", id, store.ErrNoBuffer)
	}
	return b.Markdown, nil
}

// WriteDocument replaces the body of a document and flushes it. A copy of
// the document's own markdown mirror is accepted; its header is dropped.
func (s *Service) WriteDocument(ctx context.Context, id, markdown string) error {
	if err := s.Activate(ctx, models.KindDocument, id); err != nil {
		return err
	}
	if body, ok := frontmatter.StripBody(markdown, id); ok {
		markdown = body
	}
	if err := s.Store.EditDocument(id, markdown); err != nil {
		return err
	}
	return s.Autosave.Blur(ctx)
}

// ReadCharacter returns the profile of a character through its buffer.
func (s *Service) ReadCharacter(ctx context.Context, id string) (models.Profile, error) {
	if err := s.Activate(ctx, models.KindCharacter, id); err != nil {
		return models.Profile{}, err
	}
	b, ok := s.Store.Snapshot().ActiveCharacterBuffer()
	if !ok {
		return models.Profile{}, fmt.Errorf("character %s: %w", id, store.ErrNoBuffer)
	}
	return b.Profile.Clone(), nil
}

// UpdateCharacter applies edit to the character's profile and flushes it.
func (s *Service) UpdateCharacter(ctx context.Context, id string, edit func(p *models.Profile)) error {
	profile, err := s.ReadCharacter(ctx, id)
	if err != nil {
		return err
	}
	edit(&profile)
	if err := s.Store.EditCharacter(id, profile); err != nil {
		return err
	}
	return s.Autosave.Blur(ctx)
}

// ImportCharacterImage copies an image for a character and points the
// character's buffer at it, keeping edits made while the import ran.
func (s *Service) ImportCharacterImage(ctx context.Context, id, source string) (string, error) {
	project := s.ProjectPath()
	if project == "" {
		return "", mutation.ErrNoProject
	}
	// Persist pending edits first; the import writes image_path directly.
	if err := s.Autosave.Blur(ctx); err != nil {
		return "", err
	}
	before, _ := s.Store.Snapshot().ActiveCharacterBuffer()

	dest, err := s.Engine.ImportCharacterImage(ctx, project, id, source)
	if err != nil {
		return "", err
	}

	return dest, s.adoptImage(ctx, project, id, dest, before)
}

// adoptImage points the character's buffer at dest. before is the buffer as
// it was when the import started; a newer revision means the user edited
// meanwhile, so those edits are kept and only the image path changes.
func (s *Service) adoptImage(ctx context.Context, project, id, dest string, before *store.CharacterBuffer) error {
	after, ok := s.Store.Snapshot().ActiveCharacterBuffer()
	if !ok || after.CharacterID != id {
		return nil
	}
	if before != nil && before.CharacterID == id && after.Revision != before.Revision {
		profile := after.Profile.Clone()
		profile.ImagePath = dest
		return s.Store.EditCharacter(id, profile)
	}

	profile, err := s.Engine.LoadCharacterProfile(ctx, project, id)
	if err != nil {
		return err
	}
	s.Store.LoadCharacterBuffer(id, *profile)
	return nil
}
