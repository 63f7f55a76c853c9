package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/store"
)

type fakeEngine struct {
	mu        sync.Mutex
	bodies    map[string]string
	profiles  map[string]models.Profile
	docSaves  []string
	charSaves []string
	failSaves bool
	failLoads bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		bodies:   map[string]string{"d1": "# One", "d2": "# Two"},
		profiles: map[string]models.Profile{"c1": {Age: "30"}},
	}
}

func (f *fakeEngine) LoadDocumentBody(_ context.Context, _, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoads {
		return "", errors.New("load failed")
	}
	return f.bodies[id], nil
}

func (f *fakeEngine) SaveDocumentBody(_ context.Context, _, id, md string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaves {
		return errors.New("disk full")
	}
	f.bodies[id] = md
	f.docSaves = append(f.docSaves, id)
	return nil
}

func (f *fakeEngine) LoadCharacterProfile(_ context.Context, _, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[id].Clone()
	return &p, nil
}

func (f *fakeEngine) SaveCharacterProfile(_ context.Context, _, id string, p models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaves {
		return errors.New("disk full")
	}
	f.profiles[id] = p.Clone()
	f.charSaves = append(f.charSaves, id)
	return nil
}

func (f *fakeEngine) docSaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docSaves)
}

func (f *fakeEngine) body(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[id]
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(nil)
	s.SetProject("/tmp/book")
	s.ReplaceEntities(models.Listing{
		Documents: []models.Document{
			{ID: "d1", Title: "One", FolderID: models.RootID},
			{ID: "d2", Title: "Two", FolderID: models.RootID},
		},
		Characters: []models.Character{{ID: "c1", Name: "Hero", FolderID: models.RootID}},
	})
	return s
}

func TestSyncLoadsSelectedDocument(t *testing.T) {
	s := newStore(t)
	c := New(s, newFakeEngine(), Options{Interval: time.Hour})

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	switched, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, switched)

	b, ok := s.Snapshot().ActiveDocumentBuffer()
	require.True(t, ok)
	assert.Equal(t, "# One", b.Markdown)
	assert.False(t, b.Dirty)

	switched, err = c.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, switched)
}

func TestSyncFlushesOutgoingBuffer(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour, FlushOnSwitch: true})
	ctx := context.Background()

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, err := c.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, s.EditDocument("d1", "# One, revised"))

	require.NoError(t, s.SetSelection(models.KindDocument, "d2"))
	_, err = c.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, "# One, revised", engine.body("d1"))
	b, ok := s.Snapshot().ActiveDocumentBuffer()
	require.True(t, ok)
	assert.Equal(t, "d2", b.DocumentID)
	assert.Equal(t, "# Two", b.Markdown)
}

func TestSyncWithoutFlushOnSwitchDefersSave(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, _ = c.Sync(ctx)
	require.NoError(t, s.EditDocument("d1", "unsaved"))

	require.NoError(t, s.SetSelection(models.KindCharacter, "c1"))
	_, err := c.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, "# One", engine.body("d1"))
	assert.Nil(t, s.Snapshot().DocumentBuffer)
	_, ok := s.Snapshot().ActiveCharacterBuffer()
	assert.True(t, ok)
	assert.Equal(t, 1, c.Retained())

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, "unsaved", engine.body("d1"))
	assert.Zero(t, c.Retained())
}

func TestFailedFlushOnSwitchKeepsEdits(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour, FlushOnSwitch: true})
	ctx := context.Background()

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, err := c.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, s.EditDocument("d1", "unsaved work"))

	engine.failSaves = true
	require.NoError(t, s.SetSelection(models.KindDocument, "d2"))
	_, err = c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Retained())
	assert.Equal(t, "# One", engine.body("d1"))

	// Coming back restores the edits instead of reloading the old body.
	engine.failSaves = false
	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, err = c.Sync(ctx)
	require.NoError(t, err)

	b, ok := s.Snapshot().ActiveDocumentBuffer()
	require.True(t, ok)
	assert.Equal(t, "unsaved work", b.Markdown)
	assert.True(t, b.Dirty)
	assert.Zero(t, c.Retained())

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, "unsaved work", engine.body("d1"))
}

func TestFlushRetriesRetainedBuffers(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour, FlushOnSwitch: true})
	ctx := context.Background()

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, _ = c.Sync(ctx)
	require.NoError(t, s.EditDocument("d1", "unsaved work"))

	engine.failSaves = true
	require.NoError(t, s.SetSelection(models.KindDocument, "d2"))
	_, _ = c.Sync(ctx)
	assert.Error(t, c.Flush(ctx))
	assert.Equal(t, 1, c.Retained())

	engine.failSaves = false
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, "unsaved work", engine.body("d1"))
	assert.Zero(t, c.Retained())
}

func TestStartTwiceRunsOneLoop(t *testing.T) {
	s := newStore(t)
	c := New(s, newFakeEngine(), Options{Interval: time.Hour})

	c.Start(context.Background())
	done := c.done
	c.Start(context.Background())
	assert.Equal(t, done, c.done)

	c.Close()
	select {
	case <-done:
	default:
		t.Fatal("loop still running after Close")
	}
}

func TestBlurFlushesImmediately(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.SetSelection(models.KindCharacter, "c1"))
	_, err := c.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, s.EditCharacter("c1", models.Profile{Age: "31"}))

	require.NoError(t, c.Blur(ctx))
	assert.Equal(t, "31", engine.profiles["c1"].Age)

	b, ok := s.Snapshot().ActiveCharacterBuffer()
	require.True(t, ok)
	assert.False(t, b.Dirty)
	assert.False(t, s.Snapshot().LastSaved.IsZero())
}

func TestFlushFailureKeepsBufferDirty(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, _ = c.Sync(ctx)
	require.NoError(t, s.EditDocument("d1", "draft"))

	engine.failSaves = true
	assert.Error(t, c.Flush(ctx))

	b, ok := s.Snapshot().ActiveDocumentBuffer()
	require.True(t, ok)
	assert.True(t, b.Dirty)
}

func TestFlushWithoutSelectionIsNoop(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour})

	assert.NoError(t, c.Flush(context.Background()))
	assert.Zero(t, engine.docSaveCount())
}

func TestSyncReportsLoadFailure(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	engine.failLoads = true
	c := New(s, engine, Options{Interval: time.Hour})

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	_, err := c.Sync(context.Background())
	assert.Error(t, err)
	assert.Nil(t, s.Snapshot().DocumentBuffer)
}

func TestRunFlushesPeriodically(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: 10 * time.Millisecond})

	require.NoError(t, s.SetSelection(models.KindDocument, "d1"))
	c.Start(context.Background())
	defer c.Close()

	assert.Eventually(t, func() bool {
		_, ok := s.Snapshot().ActiveDocumentBuffer()
		return ok
	}, time.Second, 5*time.Millisecond)

	// Saves happen every tick even when the buffer is clean.
	assert.Eventually(t, func() bool {
		return engine.docSaveCount() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestRunFollowsSelectionAndFlushesOnClose(t *testing.T) {
	s := newStore(t)
	engine := newFakeEngine()
	c := New(s, engine, Options{Interval: time.Hour})

	c.Start(context.Background())

	require.NoError(t, s.SetSelection(models.KindDocument, "d2"))
	assert.Eventually(t, func() bool {
		b, ok := s.Snapshot().ActiveDocumentBuffer()
		return ok && b.DocumentID == "d2"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.EditDocument("d2", "# Two, edited"))
	c.Close()

	assert.Equal(t, "# Two, edited", engine.body("d2"))
}
