package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
	"github.com/lehigh-university-libraries/manuscript/internal/review"
)

func TestSessionStore(t *testing.T) {
	store := New()
	a := review.NewSession("a", nil)
	b := review.NewSession("b", nil)
	store.Set("a", a)
	store.Set("b", b)

	got, ok := store.Get("a")
	if !ok || got != a {
		t.Fatalf("Expected session a, got %v %v", got, ok)
	}
	if len(store.GetAll()) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(store.GetAll()))
	}

	store.Delete("a")
	if _, ok := store.Get("a"); ok {
		t.Error("Expected session a to be deleted")
	}
}

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := OpenSnapshotStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)

	selected := 1
	state := models.SessionState{
		ID:       "s1",
		FileName: "novela.txt",
		Phase:    models.PhaseReviewing,
		Chapters: []models.Chapter{
			{ID: "chapter_1", Title: "Capítulo 1", OriginalContent: "uno", CorrectedContent: "Uno.", Status: models.StatusReviewing},
			{ID: "chapter_3", Title: "Capítulo 2", OriginalContent: "dos", Status: models.StatusPending},
		},
		Selected:     &selected,
		ImproveStyle: true,
		UpdatedAt:    time.Now(),
	}

	if err := store.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.FileName != "novela.txt" || len(loaded.Chapters) != 2 {
		t.Fatalf("Unexpected snapshot %+v", loaded)
	}
	if loaded.Chapters[0].CorrectedContent != "Uno." || loaded.Chapters[0].Status != models.StatusReviewing {
		t.Errorf("Unexpected chapter %+v", loaded.Chapters[0])
	}
	if loaded.Selected == nil || *loaded.Selected != 1 {
		t.Errorf("Expected selected 1, got %v", loaded.Selected)
	}

	state.Chapters[0].Status = models.StatusDone
	if err := store.Save(state); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	loaded, _ = store.Load("s1")
	if loaded.Chapters[0].Status != models.StatusDone {
		t.Errorf("Expected upsert to replace the snapshot, got %s", loaded.Chapters[0].Status)
	}
}

func TestSnapshotStoreListAndDelete(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	for i, id := range []string{"old", "new"} {
		state := models.SessionState{ID: id, Phase: models.PhaseIdle, UpdatedAt: now.Add(time.Duration(i) * time.Minute)}
		if err := store.Save(state); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}

	states, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(states) != 2 || states[0].ID != "new" || states[1].ID != "old" {
		t.Fatalf("Expected newest first, got %+v", states)
	}

	if err := store.Delete("old"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load("old"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
	if err := store.Delete("missing"); err != nil {
		t.Errorf("Deleting a missing snapshot should not fail: %v", err)
	}
}

func TestSnapshotStoreRestoresSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := OpenSnapshotStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	session := review.NewSession("s1", nil)
	extract := func(context.Context) (string, error) {
		return "Capítulo 1\nuno\nCapítulo 2\ndos", nil
	}
	if err := session.Ingest(context.Background(), "novela.txt", extract); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := store.Save(session.Snapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	store.Close()

	reopened, err := OpenSnapshotStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	state, err := reopened.Load("s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	restored := review.Restore(state, nil).Snapshot()
	if restored.Phase != models.PhaseReviewing || len(restored.Chapters) != 2 {
		t.Errorf("Unexpected restored session %+v", restored)
	}
}
