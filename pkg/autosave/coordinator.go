// Package autosave keeps the persisted body or profile of the active entity in
// step with its in-memory buffer.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/persistence"
	"github.com/mattsolo1/grove-quill/pkg/store"
)

// DefaultInterval is the autosave period used when none is configured.
const DefaultInterval = 5 * time.Second

// Engine is the part of the persistence engine the coordinator needs.
type Engine interface {
	LoadDocumentBody(ctx context.Context, projectPath, docID string) (string, error)
	SaveDocumentBody(ctx context.Context, projectPath, docID, markdown string) error
	LoadCharacterProfile(ctx context.Context, projectPath, charID string) (*models.Profile, error)
	SaveCharacterProfile(ctx context.Context, projectPath, charID string, profile models.Profile) error
}

// Options configures a Coordinator.
type Options struct {
	Interval time.Duration
	// FlushOnSwitch saves the outgoing buffer before a different entity is loaded.
	FlushOnSwitch bool
	Now           func() time.Time
	Logger        *logrus.Entry
}

type activeRef struct {
	project string
	kind    models.Kind
	id      string
}

// retained is a dirty buffer that left the store before it was saved.
type retained struct {
	markdown string
	profile  models.Profile
}

// Coordinator loads buffers for the selected entity and flushes them on a
// fixed period, on blur and (optionally) when the selection changes.
type Coordinator struct {
	store         *store.Store
	engine        Engine
	interval      time.Duration
	flushOnSwitch bool
	now           func() time.Time
	logger        *logrus.Entry

	mu       sync.Mutex
	current  activeRef
	retained map[activeRef]retained

	stop context.CancelFunc
	done chan struct{}
}

// New creates a coordinator. Call Start or Run to begin the periodic loop.
func New(s *store.Store, engine Engine, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(l)
	}
	return &Coordinator{
		store:         s,
		engine:        engine,
		interval:      opts.Interval,
		flushOnSwitch: opts.FlushOnSwitch,
		now:           opts.Now,
		logger:        opts.Logger.WithField("component", "autosave"),
		retained:      make(map[activeRef]retained),
	}
}

// Start runs the loop in a goroutine until Close is called or ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	if c.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		_ = c.Run(ctx)
	}()
}

// Close stops a loop started with Start and waits for its final flush.
func (c *Coordinator) Close() {
	if c.stop == nil {
		return
	}
	c.stop()
	<-c.done
	c.stop = nil
}

// Run follows selection changes and flushes the active buffer every interval.
// The ticker is rearmed whenever the active entity changes. On cancellation
// the active buffer is flushed one last time.
func (c *Coordinator) Run(ctx context.Context) error {
	changes, unsubscribe := c.store.Subscribe(store.SliceSelection | store.SliceProject)
	defer unsubscribe()

	if _, err := c.Sync(ctx); err != nil {
		c.logger.WithError(err).Warn("initial load failed")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := c.Flush(context.WithoutCancel(ctx)); err != nil {
				c.logger.WithError(err).Warn("final flush failed")
			}
			return ctx.Err()

		case _, ok := <-changes:
			if !ok {
				return nil
			}
			switched, err := c.Sync(ctx)
			if err != nil {
				c.logger.WithError(err).Warn("load failed")
			}
			if switched {
				ticker.Reset(c.interval)
			}

		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				// Buffer stays dirty; the next tick retries.
				c.logger.WithError(err).Warn("autosave failed")
			}
		}
	}
}

// Sync brings the buffers in line with the current selection: when the
// active entity changed it flushes the outgoing buffer (if enabled), drops
// stale buffers and loads the buffer for the new entity. A dirty outgoing
// buffer that could not be saved is retained, retried on every flush and
// restored when its entity is selected again. It reports whether the active
// entity changed.
func (c *Coordinator) Sync(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.store.Snapshot()
	kind, id := st.Selection.Active()
	next := activeRef{project: st.ProjectPath, kind: kind, id: id}

	switched := next != c.current
	if switched {
		prev := c.current
		c.current = next
		if prev.id != "" && prev.project == st.ProjectPath {
			c.release(ctx, st, prev)
		}
		c.store.DropBuffers()
	}

	if id == "" || c.loaded(st, kind, id) {
		return switched, nil
	}
	if c.restore(next) {
		return switched, nil
	}
	return switched, c.load(ctx, st.ProjectPath, kind, id)
}

// release saves the outgoing buffer when flush on switch is enabled. A dirty
// buffer that is not saved is kept aside instead of being dropped.
func (c *Coordinator) release(ctx context.Context, st *store.State, ref activeRef) {
	var r retained
	switch ref.kind {
	case models.KindDocument:
		b := st.DocumentBuffer
		if b == nil || b.DocumentID != ref.id || !b.Dirty {
			return
		}
		r.markdown = b.Markdown
	case models.KindCharacter:
		b := st.CharacterBuffer
		if b == nil || b.CharacterID != ref.id || !b.Dirty {
			return
		}
		r.profile = b.Profile.Clone()
	default:
		return
	}

	if c.flushOnSwitch {
		err := c.flushEntity(ctx, st, ref.kind, ref.id)
		if err == nil {
			return
		}
		c.logger.WithError(err).WithField("id", ref.id).Warn("flush on switch failed, keeping edits")
	}
	c.retained[ref] = r
}

// restore reinstalls a retained buffer for ref as a dirty buffer.
func (c *Coordinator) restore(ref activeRef) bool {
	r, ok := c.retained[ref]
	if !ok {
		return false
	}

	var err error
	switch ref.kind {
	case models.KindDocument:
		if !c.store.LoadDocumentBuffer(ref.id, r.markdown) {
			return false
		}
		err = c.store.EditDocument(ref.id, r.markdown)
	case models.KindCharacter:
		if !c.store.LoadCharacterBuffer(ref.id, r.profile) {
			return false
		}
		err = c.store.EditCharacter(ref.id, r.profile)
	}
	if err != nil {
		return false
	}
	delete(c.retained, ref)
	return true
}

// flushRetained retries every retained buffer. Buffers of entities that no
// longer exist are discarded.
func (c *Coordinator) flushRetained(ctx context.Context) error {
	var errs []error
	for ref, r := range c.retained {
		var err error
		switch ref.kind {
		case models.KindDocument:
			err = c.engine.SaveDocumentBody(ctx, ref.project, ref.id, r.markdown)
		case models.KindCharacter:
			err = c.engine.SaveCharacterProfile(ctx, ref.project, ref.id, r.profile)
		}
		switch {
		case err == nil:
			delete(c.retained, ref)
			c.logger.WithField("id", ref.id).Debug("retained buffer flushed")
		case errors.Is(err, persistence.ErrNotFound):
			delete(c.retained, ref)
			c.logger.WithField("id", ref.id).Warn("discarding edits of deleted entity")
		default:
			errs = append(errs, fmt.Errorf("save %s %s: %w", ref.kind, ref.id, err))
		}
	}
	return errors.Join(errs...)
}

// Retained is the number of unsaved buffers kept aside after a failed save.
func (c *Coordinator) Retained() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.retained)
}

// Flush saves the buffer of the active entity, if one is loaded, and any
// retained buffers.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	retainedErr := c.flushRetained(ctx)

	// Re-read the selection now rather than trusting what was active when
	// the timer was armed.
	st := c.store.Snapshot()
	kind, id := st.Selection.Active()
	if id == "" {
		return retainedErr
	}
	return errors.Join(retainedErr, c.flushEntity(ctx, st, kind, id))
}

// Blur is called when an input loses focus and flushes immediately.
func (c *Coordinator) Blur(ctx context.Context) error {
	return c.Flush(ctx)
}

func (c *Coordinator) loaded(st *store.State, kind models.Kind, id string) bool {
	switch kind {
	case models.KindDocument:
		return st.DocumentBuffer != nil && st.DocumentBuffer.DocumentID == id
	case models.KindCharacter:
		return st.CharacterBuffer != nil && st.CharacterBuffer.CharacterID == id
	}
	return false
}

func (c *Coordinator) load(ctx context.Context, project string, kind models.Kind, id string) error {
	switch kind {
	case models.KindDocument:
		body, err := c.engine.LoadDocumentBody(ctx, project, id)
		if err != nil {
			return fmt.Errorf("load document %s: %w", id, err)
		}
		if !c.store.LoadDocumentBuffer(id, body) {
			c.logger.WithField("id", id).Debug("selection moved on, discarding loaded body")
		}
	case models.KindCharacter:
		profile, err := c.engine.LoadCharacterProfile(ctx, project, id)
		if err != nil {
			return fmt.Errorf("load character %s: %w", id, err)
		}
		if !c.store.LoadCharacterBuffer(id, *profile) {
			c.logger.WithField("id", id).Debug("selection moved on, discarding loaded profile")
		}
	}
	return nil
}

// flushEntity writes the whole buffer for the given entity from st. It is a
// no-op when no buffer for that entity is held.
func (c *Coordinator) flushEntity(ctx context.Context, st *store.State, kind models.Kind, id string) error {
	switch kind {
	case models.KindDocument:
		b := st.DocumentBuffer
		if b == nil || b.DocumentID != id {
			return nil
		}
		if err := c.engine.SaveDocumentBody(ctx, st.ProjectPath, id, b.Markdown); err != nil {
			return fmt.Errorf("save document %s: %w", id, err)
		}
		c.store.MarkDocumentFlushed(id, b.Revision, c.now())
	case models.KindCharacter:
		b := st.CharacterBuffer
		if b == nil || b.CharacterID != id {
			return nil
		}
		if err := c.engine.SaveCharacterProfile(ctx, st.ProjectPath, id, b.Profile); err != nil {
			return fmt.Errorf("save character %s: %w", id, err)
		}
		c.store.MarkCharacterFlushed(id, b.Revision, c.now())
	default:
		return nil
	}

	c.logger.WithFields(logrus.Fields{
		"kind": kind,
		"id":   id,
	}).Debug("buffer flushed")
	return nil
}
