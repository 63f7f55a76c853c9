// Package mutation sequences create and delete actions against the engine and
// keeps the store, selection and folder expansion consistent with them.
package mutation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/navigation"
	"github.com/mattsolo1/grove-quill/pkg/store"
	"github.com/mattsolo1/grove-quill/pkg/tree"
)

// Engine is the part of the persistence engine that mutations use.
type Engine interface {
	ListTree(ctx context.Context, project string) (*models.Listing, error)
	CreateFolder(ctx context.Context, project, name, parentID string) (string, error)
	CreateDocument(ctx context.Context, project, title, folderID string) (string, error)
	CreateCharacter(ctx context.Context, project, name, folderID string) (string, error)
	DeleteFolderRecursive(ctx context.Context, project, id string) error
	DeleteDocument(ctx context.Context, project, id string) error
	DeleteCharacter(ctx context.Context, project, id string) error
}

// Prompter asks the user for the name of a new entity. ok is false when the
// user cancelled.
type Prompter interface {
	PromptName(ctx context.Context, kind models.Kind) (name string, ok bool, err error)
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(err error)
}

// StaticName is a Prompter that always answers with the same name, for
// non-interactive callers.
type StaticName string

func (s StaticName) PromptName(context.Context, models.Kind) (string, bool, error) {
	return string(s), s != "", nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(error) {}

// Options configures an Orchestrator.
type Options struct {
	Prompter Prompter
	Notifier Notifier
	Logger   *logrus.Entry
}

// Orchestrator runs create and delete actions.
type Orchestrator struct {
	store    *store.Store
	nav      *navigation.Controller
	engine   Engine
	prompter Prompter
	notifier Notifier
	logger   *logrus.Entry
}

// New creates an orchestrator. Without a Prompter every create is cancelled.
func New(s *store.Store, nav *navigation.Controller, engine Engine, opts Options) *Orchestrator {
	if opts.Prompter == nil {
		opts.Prompter = StaticName("")
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(l)
	}
	return &Orchestrator{
		store:    s,
		nav:      nav,
		engine:   engine,
		prompter: opts.Prompter,
		notifier: opts.Notifier,
		logger:   opts.Logger.WithField("component", "mutation"),
	}
}

// WithPrompter returns a copy that acquires names from p.
func (o *Orchestrator) WithPrompter(p Prompter) *Orchestrator {
	c := *o
	c.prompter = p
	return &c
}

// CreateFolder creates a folder under parentID. It returns "" and no error
// when the user cancels.
func (o *Orchestrator) CreateFolder(ctx context.Context, parentID string) (string, error) {
	return o.create(ctx, models.KindFolder, parentID, o.engine.CreateFolder)
}

// CreateDocument creates a document in folderID and selects it.
func (o *Orchestrator) CreateDocument(ctx context.Context, folderID string) (string, error) {
	return o.create(ctx, models.KindDocument, folderID, o.engine.CreateDocument)
}

// CreateCharacter creates a character in folderID and selects it.
func (o *Orchestrator) CreateCharacter(ctx context.Context, folderID string) (string, error) {
	return o.create(ctx, models.KindCharacter, folderID, o.engine.CreateCharacter)
}

type createFunc func(ctx context.Context, project, name, parentID string) (string, error)

func (o *Orchestrator) create(ctx context.Context, kind models.Kind, parentID string, call createFunc) (string, error) {
	st := o.store.Snapshot()
	if !st.HasProject() {
		return "", ErrNoProject
	}

	name, ok, err := o.prompter.PromptName(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("prompt for %s name: %w", kind, err)
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		o.logger.WithField("kind", kind).Debug("Create cancelled")
		return "", nil
	}

	id, err := call(ctx, st.ProjectPath, name, parentID)
	if err != nil {
		return "", o.fail("create", kind, parentID, err)
	}

	if err := o.refresh(ctx, st.ProjectPath); err != nil {
		return id, o.fail("refresh", kind, id, err)
	}

	if kind != models.KindFolder {
		if err := o.store.SetSelection(kind, id); err != nil {
			o.logger.WithError(err).WithField("id", id).Debug("New entity not selectable")
		}
	}
	if !models.IsRoot(parentID) {
		o.nav.Reveal(kind, id)
		o.nav.Expand(parentID)
	}

	o.logger.WithFields(logrus.Fields{
		"kind":   kind,
		"id":     id,
		"parent": parentID,
	}).Info("Created entity")
	return id, nil
}

// PendingDelete is a folder delete awaiting confirmation. It can be
// confirmed or cancelled once.
type PendingDelete struct {
	FolderID string
	Name     string
	Project  string
	Counts   tree.Counts

	used atomic.Bool
}

func (p *PendingDelete) claim() bool {
	return p.used.CompareAndSwap(false, true)
}

// RequestDeleteFolder starts a folder delete. Nothing is removed until the
// returned value is passed to ConfirmDelete.
func (o *Orchestrator) RequestDeleteFolder(id string) (*PendingDelete, error) {
	st := o.store.Snapshot()
	if !st.HasProject() {
		return nil, ErrNoProject
	}

	node := tree.Find(st.Tree, models.KindFolder, id)
	if node == nil {
		return nil, fmt.Errorf("folder %s: %w", id, store.ErrUnknownEntity)
	}

	return &PendingDelete{
		FolderID: id,
		Name:     node.Name(),
		Project:  st.ProjectPath,
		Counts:   tree.CountDescendants(node),
	}, nil
}

// ConfirmDelete removes the folder and everything below it, clears the
// selection and refreshes the store.
func (o *Orchestrator) ConfirmDelete(ctx context.Context, p *PendingDelete) error {
	if p == nil || !p.claim() {
		return ErrPendingDeleteUsed
	}
	if o.store.Snapshot().ProjectPath != p.Project {
		return ErrProjectChanged
	}

	if err := o.engine.DeleteFolderRecursive(ctx, p.Project, p.FolderID); err != nil {
		return o.fail("delete", models.KindFolder, p.FolderID, err)
	}

	// The active entity may have lived anywhere in the removed subtree.
	o.nav.DeselectAll()
	o.nav.Collapse(p.FolderID)

	if err := o.refresh(ctx, p.Project); err != nil {
		return o.fail("refresh", models.KindFolder, p.FolderID, err)
	}

	o.logger.WithFields(logrus.Fields{
		"folder":     p.FolderID,
		"folders":    p.Counts.Folders,
		"documents":  p.Counts.Documents,
		"characters": p.Counts.Characters,
	}).Info("Deleted folder")
	return nil
}

// CancelDelete discards a pending delete.
func (o *Orchestrator) CancelDelete(p *PendingDelete) {
	if p != nil && p.claim() {
		o.logger.WithField("folder", p.FolderID).Debug("Delete cancelled")
	}
}

// DeleteDocument removes a document without confirmation.
func (o *Orchestrator) DeleteDocument(ctx context.Context, id string) error {
	return o.deleteLeaf(ctx, models.KindDocument, id, o.engine.DeleteDocument)
}

// DeleteCharacter removes a character without confirmation.
func (o *Orchestrator) DeleteCharacter(ctx context.Context, id string) error {
	return o.deleteLeaf(ctx, models.KindCharacter, id, o.engine.DeleteCharacter)
}

func (o *Orchestrator) deleteLeaf(ctx context.Context, kind models.Kind, id string, call func(context.Context, string, string) error) error {
	st := o.store.Snapshot()
	if !st.HasProject() {
		return ErrNoProject
	}

	if err := call(ctx, st.ProjectPath, id); err != nil {
		return o.fail("delete", kind, id, err)
	}

	if activeKind, activeID := o.store.Snapshot().Selection.Active(); activeKind == kind && activeID == id {
		o.nav.DeselectAll()
	}

	if err := o.refresh(ctx, st.ProjectPath); err != nil {
		return o.fail("refresh", kind, id, err)
	}
	return nil
}

// Refresh reloads every entity of the open project into the store.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	st := o.store.Snapshot()
	if !st.HasProject() {
		return ErrNoProject
	}
	if err := o.refresh(ctx, st.ProjectPath); err != nil {
		return o.fail("refresh", "", "", err)
	}
	return nil
}

func (o *Orchestrator) refresh(ctx context.Context, project string) error {
	listing, err := o.engine.ListTree(ctx, project)
	if err != nil {
		return err
	}
	if o.store.Snapshot().ProjectPath != project {
		o.logger.WithField("project", project).Debug("Project changed during refresh, dropping listing")
		return nil
	}
	o.store.ReplaceEntities(*listing)
	return nil
}

func (o *Orchestrator) fail(op string, kind models.Kind, id string, err error) error {
	oe := &OpError{Op: op, Kind: kind, ID: id, Err: err}
	o.logger.WithFields(logrus.Fields{
		"op":   op,
		"kind": kind,
		"id":   id,
	}).WithError(err).Error("Operation failed")
	o.notifier.Notify(oe)
	return oe
}
