//go:build integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func TestIntegration(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=1 to run.")
	}

	tmpDir := t.TempDir()
	ctx := context.Background()
	config := &service.Config{
		DataDir:          filepath.Join(tmpDir, "data"),
		AutosaveInterval: 50 * time.Millisecond,
		FlushOnSwitch:    true,
	}

	var root, docID, charID string

	t.Run("CreateAndEdit", func(t *testing.T) {
		svc, err := service.New(config, nil)
		if err != nil {
			t.Fatalf("Failed to create service: %v", err)
		}
		defer svc.Close()

		root, err = svc.CreateProject(ctx, tmpDir, "novel")
		if err != nil {
			t.Fatalf("Failed to create project: %v", err)
		}

		folderID, err := svc.Mutations.WithPrompter(mutation.StaticName("Part One")).CreateFolder(ctx, models.RootID)
		if err != nil {
			t.Fatalf("Failed to create folder: %v", err)
		}
		docID, err = svc.Mutations.WithPrompter(mutation.StaticName("Chapter 1")).CreateDocument(ctx, folderID)
		if err != nil {
			t.Fatalf("Failed to create document: %v", err)
		}
		charID, err = svc.Mutations.WithPrompter(mutation.StaticName("Ada")).CreateCharacter(ctx, folderID)
		if err != nil {
			t.Fatalf("Failed to create character: %v", err)
		}

		// Edit through the buffer and let the periodic autosave write it.
		svc.Autosave.Start(ctx)
		if err := svc.Activate(ctx, models.KindDocument, docID); err != nil {
			t.Fatalf("Failed to activate document: %v", err)
		}
		if err := svc.Store.EditDocument(docID, "# Chapter 1\n\nThe tide came in."); err != nil {
			t.Fatalf("Failed to edit document: %v", err)
		}

		deadline := time.Now().Add(5 * time.Second)
		for {
			st := svc.Store.Snapshot()
			if b, ok := st.ActiveDocumentBuffer(); ok && !b.Dirty {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("Autosave did not flush the document")
			}
			time.Sleep(20 * time.Millisecond)
		}

		if err := svc.UpdateCharacter(ctx, charID, func(p *models.Profile) { p.Age = "36" }); err != nil {
			t.Fatalf("Failed to update character: %v", err)
		}
	})

	t.Run("ReopenInNewProcess", func(t *testing.T) {
		svc, err := service.New(config, nil)
		if err != nil {
			t.Fatalf("Failed to create service: %v", err)
		}
		defer svc.Close()

		if err := svc.Use(ctx, ""); err != nil {
			t.Fatalf("Failed to reopen last project: %v", err)
		}
		if svc.ProjectPath() != root {
			t.Errorf("Expected project %s, got %s", root, svc.ProjectPath())
		}

		body, err := svc.ReadDocument(ctx, docID)
		if err != nil {
			t.Fatalf("Failed to read document: %v", err)
		}
		if body != "# Chapter 1\n\nThe tide came in." {
			t.Errorf("Unexpected body: %q", body)
		}

		profile, err := svc.ReadCharacter(ctx, charID)
		if err != nil {
			t.Fatalf("Failed to read character: %v", err)
		}
		if profile.Age != "36" {
			t.Errorf("Expected age 36, got %q", profile.Age)
		}

		hits, err := svc.Engine.Search(ctx, root, "tide")
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if len(hits) != 1 || hits[0].DocumentID != docID {
			t.Errorf("Expected one hit for %s, got %+v", docID, hits)
		}

		if _, err := os.Stat(filepath.Join(root, "md", docID+".md")); err != nil {
			t.Errorf("Markdown mirror missing: %v", err)
		}
	})
}
