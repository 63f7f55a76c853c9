// Package service wires the store, engine and controllers of an open project
// together for the CLI and the terminal browser.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/autosave"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
	"github.com/mattsolo1/grove-quill/pkg/navigation"
	"github.com/mattsolo1/grove-quill/pkg/persistence"
	"github.com/mattsolo1/grove-quill/pkg/projects"
	"github.com/mattsolo1/grove-quill/pkg/store"
)

// Config holds service configuration
type Config struct {
	DataDir          string
	AutosaveInterval time.Duration
	FlushOnSwitch    bool
	SearchLimit      int
	ThumbnailWidth   int
}

// Service owns every component for one process.
type Service struct {
	Config    *Config
	Engine    *persistence.Engine
	Store     *store.Store
	Nav       *navigation.Controller
	Autosave  *autosave.Coordinator
	Mutations *mutation.Orchestrator
	Registry  *projects.Registry

	logger *logrus.Entry
}

// New creates a service with no project open.
func New(config *Config, logger *logrus.Entry) (*Service, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}

	registry, err := projects.NewRegistry(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open project registry: %w", err)
	}

	engine := persistence.New(persistence.Options{
		SearchLimit:    config.SearchLimit,
		ThumbnailWidth: config.ThumbnailWidth,
		Logger:         logger,
	})

	st := store.New(logger)
	nav := navigation.New(st)

	return &Service{
		Config:   config,
		Engine:   engine,
		Store:    st,
		Nav:      nav,
		Registry: registry,
		Autosave: autosave.New(st, engine, autosave.Options{
			Interval:      config.AutosaveInterval,
			FlushOnSwitch: config.FlushOnSwitch,
			Logger:        logger,
		}),
		Mutations: mutation.New(st, nav, engine, mutation.Options{Logger: logger}),
		logger:    logger.WithField("component", "service"),
	}, nil
}

// CreateProject creates dir/name and opens it.
func (s *Service) CreateProject(ctx context.Context, dir, name string) (string, error) {
	root, err := s.Engine.CreateProject(ctx, dir, name)
	if err != nil {
		return "", err
	}
	if err := s.OpenProject(ctx, root); err != nil {
		return "", err
	}
	return root, nil
}

// OpenProject makes path the current project. Pending edits of the previous
// project are flushed first, and the switch is refused when that fails;
// selection, buffers and folder expansion start fresh.
func (s *Service) OpenProject(ctx context.Context, path string) error {
	root, err := s.Engine.Open(ctx, path)
	if err != nil {
		return err
	}

	// Switching drops every buffer, so unsaved edits must be written first.
	// Edits of an entity deleted behind our back cannot be saved anywhere.
	if err := s.Autosave.Blur(ctx); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("save changes before opening %s: %w", root, err)
	}

	s.Store.SetProject(root)
	s.Nav.Reset()
	if err := s.Mutations.Refresh(ctx); err != nil {
		return err
	}

	if _, err := s.Registry.Touch(root); err != nil {
		s.logger.WithError(err).Warn("Failed to record project")
	}

	s.logger.WithField("project", root).Debug("Opened project")
	return nil
}

// ResolveProject turns a --project value into a project path. An empty
// value means the most recently used project; otherwise the value is tried
// as a path and then as a registered project name.
func (s *Service) ResolveProject(ref string) (string, error) {
	if ref == "" {
		p, err := s.Registry.Last()
		if errors.Is(err, projects.ErrNotRegistered) {
			return "", fmt.Errorf("no project opened yet, run 'quill init' or pass --project: %w", mutation.ErrNoProject)
		}
		if err != nil {
			return "", err
		}
		return p.Path, nil
	}

	if _, err := os.Stat(filepath.Join(ref, persistence.DatabaseFile)); err == nil {
		return filepath.Abs(ref)
	}

	p, err := s.Registry.FindByName(ref)
	if err != nil {
		return "", fmt.Errorf("unknown project %q: %w", ref, err)
	}
	return p.Path, nil
}

// Use resolves ref and opens it.
func (s *Service) Use(ctx context.Context, ref string) error {
	path, err := s.ResolveProject(ref)
	if err != nil {
		return err
	}
	return s.OpenProject(ctx, path)
}

// ProjectPath is the path of the open project, or "".
func (s *Service) ProjectPath() string {
	return s.Store.Snapshot().ProjectPath
}

// Close flushes the active buffer and releases every resource.
func (s *Service) Close() error {
	s.Autosave.Close()
	if err := s.Autosave.Flush(context.Background()); err != nil {
		s.logger.WithError(err).Warn("Final flush failed")
	}
	return errors.Join(s.Engine.Close(), s.Registry.Close())
}
