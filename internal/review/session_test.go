package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
)

const twoChapters = "Capítulo 1: Inicio\nHola mundo.\n\nCapítulo 2\nOtro texto."

func textSource(text string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return text, nil }
}

func upperCorrector() Corrector {
	return CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		return strings.ToUpper(text), nil
	})
}

func newLoadedSession(t *testing.T, corrector Corrector) *Session {
	t.Helper()
	s := NewSession("test", corrector)
	if err := s.Ingest(context.Background(), "book.txt", textSource(twoChapters)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return s
}

func TestIngest(t *testing.T) {
	s := newLoadedSession(t, upperCorrector())

	state := s.Snapshot()
	if state.Phase != models.PhaseReviewing {
		t.Errorf("Expected phase %s, got %s", models.PhaseReviewing, state.Phase)
	}
	if len(state.Chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(state.Chapters))
	}
	if state.Selected == nil || *state.Selected != 0 {
		t.Errorf("Expected first chapter selected, got %v", state.Selected)
	}
	if !state.ImproveStyle {
		t.Errorf("Expected style improvement on by default")
	}
	if state.FileName != "book.txt" {
		t.Errorf("Expected file name book.txt, got %s", state.FileName)
	}
}

func TestIngestExtractionFailure(t *testing.T) {
	s := NewSession("test", upperCorrector())
	readErr := errors.New("unsupported file type")

	err := s.Ingest(context.Background(), "book.pdf", func(context.Context) (string, error) {
		return "", readErr
	})
	if !errors.Is(err, readErr) {
		t.Fatalf("Expected extraction error, got %v", err)
	}

	state := s.Snapshot()
	if state.Phase != models.PhaseIdle {
		t.Errorf("Expected phase %s, got %s", models.PhaseIdle, state.Phase)
	}
	if state.LastError != "unsupported file type" {
		t.Errorf("Expected error surfaced verbatim, got %q", state.LastError)
	}
}

func TestIngestSegmentationEmpty(t *testing.T) {
	s := NewSession("test", upperCorrector())

	err := s.Ingest(context.Background(), "empty.txt", textSource("Chapter 1\n\nChapter 2\n"))
	if !errors.Is(err, ErrSegmentationEmpty) {
		t.Fatalf("Expected ErrSegmentationEmpty, got %v", err)
	}

	state := s.Snapshot()
	if state.Phase != models.PhaseIdle {
		t.Errorf("Expected phase %s, got %s", models.PhaseIdle, state.Phase)
	}
	if state.LastError == "" {
		t.Errorf("Expected last error to be set")
	}
	if len(state.Chapters) != 0 {
		t.Errorf("Expected no chapters, got %d", len(state.Chapters))
	}
}

func TestIngestResetsDocumentButKeepsStyle(t *testing.T) {
	s := newLoadedSession(t, upperCorrector())
	s.ToggleImproveStyle()
	if err := s.AcceptCorrection(0); err != nil {
		t.Fatalf("AcceptCorrection failed: %v", err)
	}

	if err := s.Ingest(context.Background(), "other.txt", textSource("Sin capítulos.")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	state := s.Snapshot()
	if len(state.Chapters) != 1 || state.Chapters[0].ID != "full_doc" {
		t.Fatalf("Expected the new document only, got %+v", state.Chapters)
	}
	if state.Chapters[0].Status != models.StatusPending {
		t.Errorf("Expected fresh chapter, got %s", state.Chapters[0].Status)
	}
	if state.ImproveStyle {
		t.Errorf("Expected style flag to survive a new upload")
	}
}

func TestCorrectAcceptExport(t *testing.T) {
	s := newLoadedSession(t, upperCorrector())

	if err := s.RequestCorrection(context.Background(), 0); err != nil {
		t.Fatalf("RequestCorrection failed: %v", err)
	}

	ch, _ := s.Chapter(0)
	if ch.Status != models.StatusReviewing {
		t.Errorf("Expected %s, got %s", models.StatusReviewing, ch.Status)
	}
	if ch.CorrectedContent != "HOLA MUNDO." {
		t.Errorf("Expected corrected content, got %q", ch.CorrectedContent)
	}

	if _, err := s.ExportSections(); !errors.Is(err, ErrNotAllDone) {
		t.Errorf("Expected ErrNotAllDone, got %v", err)
	}

	if err := s.AcceptCorrection(0); err != nil {
		t.Fatalf("AcceptCorrection failed: %v", err)
	}
	if s.AllChaptersDone() {
		t.Errorf("Expected export gate closed with one chapter pending")
	}
	if err := s.AcceptCorrection(1); err != nil {
		t.Fatalf("AcceptCorrection failed: %v", err)
	}
	if !s.AllChaptersDone() {
		t.Errorf("Expected all chapters done")
	}

	sections, err := s.ExportSections()
	if err != nil {
		t.Fatalf("ExportSections failed: %v", err)
	}
	want := []models.Section{
		{Title: "Capítulo 1: Inicio", Content: "HOLA MUNDO."},
		{Title: "Capítulo 2", Content: "Otro texto."},
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Errorf("Section %d: got %+v, want %+v", i, sections[i], want[i])
		}
	}
}

func TestCorrectionFailure(t *testing.T) {
	fail := false
	corrector := CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		if fail {
			return "", errors.New("quota exceeded")
		}
		return "v1", nil
	})
	s := newLoadedSession(t, corrector)

	if err := s.RequestCorrection(context.Background(), 0); err != nil {
		t.Fatalf("RequestCorrection failed: %v", err)
	}
	before := s.Snapshot()

	fail = true
	err := s.RequestCorrection(context.Background(), 0)
	if !errors.Is(err, ErrCorrectionFailed) {
		t.Fatalf("Expected ErrCorrectionFailed, got %v", err)
	}

	after := s.Snapshot()
	if after.Chapters[0].Status != models.StatusPending {
		t.Errorf("Expected %s after failure, got %s", models.StatusPending, after.Chapters[0].Status)
	}
	if after.Chapters[0].CorrectedContent != "v1" {
		t.Errorf("Expected earlier correction kept, got %q", after.Chapters[0].CorrectedContent)
	}
	if !strings.Contains(after.LastError, "quota exceeded") {
		t.Errorf("Expected last error to mention the cause, got %q", after.LastError)
	}
	if after.Chapters[1] != before.Chapters[1] {
		t.Errorf("Other chapter changed: %+v -> %+v", before.Chapters[1], after.Chapters[1])
	}
	if after.Phase != models.PhaseReviewing {
		t.Errorf("Expected phase unchanged, got %s", after.Phase)
	}
}

func TestDoneChapterIgnoresRequests(t *testing.T) {
	var calls atomic.Int32
	corrector := CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		calls.Add(1)
		return text, nil
	})
	s := newLoadedSession(t, corrector)
	_ = s.AcceptCorrection(0)

	if err := s.RequestCorrection(context.Background(), 0); err != nil {
		t.Fatalf("Expected no-op, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected corrector not to be called, got %d calls", calls.Load())
	}
}

func TestConcurrentCorrections(t *testing.T) {
	release := make(chan struct{})
	corrector := CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		<-release
		return "fixed: " + text, nil
	})
	s := newLoadedSession(t, corrector)

	first := s.StartCorrection(0)
	if first == nil {
		t.Fatal("Expected job for chapter 0")
	}
	if dup := s.StartCorrection(0); dup != nil {
		t.Fatalf("Expected duplicate request to be ignored, got %v", dup)
	}
	second := s.StartCorrection(1)
	if second == nil {
		t.Fatal("Expected job for chapter 1")
	}

	state := s.Snapshot()
	for i, ch := range state.Chapters {
		if ch.Status != models.StatusProcessing {
			t.Errorf("Chapter %d: expected %s, got %s", i, models.StatusProcessing, ch.Status)
		}
	}

	var wg sync.WaitGroup
	for _, job := range []*Job{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := job.Run(context.Background()); err != nil {
				t.Errorf("Run failed: %v", err)
			}
		}()
	}
	close(release)
	wg.Wait()

	state = s.Snapshot()
	if state.Chapters[0].CorrectedContent != "fixed: Hola mundo." {
		t.Errorf("Chapter 0 got %q", state.Chapters[0].CorrectedContent)
	}
	if state.Chapters[1].CorrectedContent != "fixed: Otro texto." {
		t.Errorf("Chapter 1 got %q", state.Chapters[1].CorrectedContent)
	}
}

func TestToggleAffectsOnlyLaterRequests(t *testing.T) {
	var seen []bool
	corrector := CorrectorFunc(func(_ context.Context, text string, improveStyle bool) (string, error) {
		seen = append(seen, improveStyle)
		return text, nil
	})
	s := newLoadedSession(t, corrector)

	job := s.StartCorrection(0)
	if job == nil {
		t.Fatal("Expected a job for chapter 0")
	}
	if got := s.ToggleImproveStyle(); got {
		t.Fatalf("Expected toggle to turn style off")
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := s.RequestCorrection(context.Background(), 1); err != nil {
		t.Fatalf("RequestCorrection failed: %v", err)
	}

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Errorf("Expected flags [true false], got %v", seen)
	}
}

func TestCorrectAll(t *testing.T) {
	text := "Chapter 1\none\nChapter 2\ntwo\nChapter 3\nthree\nChapter 4\nfour"
	var inFlight, maxInFlight atomic.Int32
	corrector := CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		if text == "three" {
			return "", errors.New("timeout")
		}
		return strings.ToUpper(text), nil
	})

	s := NewSession("batch", corrector)
	if err := s.Ingest(context.Background(), "book.txt", textSource(text)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	_ = s.AcceptCorrection(3)

	err := s.CorrectAll(context.Background(), 2)
	if !errors.Is(err, ErrCorrectionFailed) {
		t.Fatalf("Expected joined ErrCorrectionFailed, got %v", err)
	}
	if maxInFlight.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent corrections, saw %d", maxInFlight.Load())
	}

	state := s.Snapshot()
	expected := []models.ChapterStatus{models.StatusReviewing, models.StatusReviewing, models.StatusPending, models.StatusDone}
	for i, st := range expected {
		if state.Chapters[i].Status != st {
			t.Errorf("Chapter %d: expected %s, got %s", i, st, state.Chapters[i].Status)
		}
	}
	if state.Chapters[3].CorrectedContent != "" {
		t.Errorf("Accepted chapter should not have been corrected")
	}
}

func TestStartAllThenRunJobs(t *testing.T) {
	s := newLoadedSession(t, upperCorrector())

	jobs := s.StartAll()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	for _, ch := range s.Snapshot().Chapters {
		if ch.Status != models.StatusProcessing {
			t.Errorf("Expected %s to be PROCESSING before running, got %s", ch.ID, ch.Status)
		}
	}
	if again := s.StartAll(); len(again) != 0 {
		t.Errorf("Expected no new jobs while corrections are in flight, got %d", len(again))
	}

	if err := RunJobs(context.Background(), jobs, 0); err != nil {
		t.Fatalf("RunJobs failed: %v", err)
	}
	for _, ch := range s.Snapshot().Chapters {
		if ch.Status != models.StatusReviewing || ch.CorrectedContent != strings.ToUpper(ch.OriginalContent) {
			t.Errorf("Unexpected chapter after RunJobs %+v", ch)
		}
	}
}

func TestStaleResultAfterNewUploadIsDropped(t *testing.T) {
	release := make(chan struct{})
	corrector := CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		<-release
		return "stale", nil
	})
	s := newLoadedSession(t, corrector)

	job := s.StartCorrection(0)
	if err := s.Ingest(context.Background(), "new.txt", textSource(twoChapters)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	close(release)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ch, _ := s.Chapter(0)
	if ch.Status != models.StatusPending || ch.CorrectedContent != "" {
		t.Errorf("Expected new document untouched, got %+v", ch)
	}
}

func TestChapterIndexErrors(t *testing.T) {
	s := newLoadedSession(t, upperCorrector())

	if err := s.AcceptCorrection(5); !errors.Is(err, ErrChapterNotFound) {
		t.Errorf("AcceptCorrection: expected ErrChapterNotFound, got %v", err)
	}
	if err := s.Select(2); !errors.Is(err, ErrChapterNotFound) {
		t.Errorf("Select: expected ErrChapterNotFound, got %v", err)
	}
	if err := s.Select(1); err != nil {
		t.Errorf("Select failed: %v", err)
	}
}

func TestCorrectionOutOfRangeIsNoop(t *testing.T) {
	called := false
	corrector := CorrectorFunc(func(_ context.Context, text string, _ bool) (string, error) {
		called = true
		return text, nil
	})
	s := newLoadedSession(t, corrector)
	before := s.Snapshot()

	for _, index := range []int{-1, 2, 99} {
		if job := s.StartCorrection(index); job != nil {
			t.Errorf("StartCorrection(%d): expected no job, got %v", index, job)
		}
		if err := s.RequestCorrection(context.Background(), index); err != nil {
			t.Errorf("RequestCorrection(%d): expected no error, got %v", index, err)
		}
	}

	if called {
		t.Error("Expected the corrector not to be called")
	}
	after := s.Snapshot()
	for i, ch := range after.Chapters {
		if ch.Status != before.Chapters[i].Status || ch.CorrectedContent != before.Chapters[i].CorrectedContent {
			t.Errorf("Chapter %d changed: %+v", i, ch)
		}
	}
	if after.LastError != "" {
		t.Errorf("Expected no error recorded, got %q", after.LastError)
	}
}

func TestRestore(t *testing.T) {
	selected := 1
	state := models.SessionState{
		ID:       "saved",
		FileName: "book.docx",
		Phase:    models.PhaseReviewing,
		Chapters: []models.Chapter{
			{ID: "chapter_1", Title: "A", OriginalContent: "a", Status: models.StatusProcessing},
			{ID: "chapter_3", Title: "B", OriginalContent: "b", CorrectedContent: "B", Status: models.StatusDone},
		},
		Selected:     &selected,
		ImproveStyle: false,
	}

	s := Restore(state, upperCorrector())
	got := s.Snapshot()

	if got.Chapters[0].Status != models.StatusPending {
		t.Errorf("Expected in-flight chapter back to %s, got %s", models.StatusPending, got.Chapters[0].Status)
	}
	if got.Chapters[1].Status != models.StatusDone {
		t.Errorf("Expected accepted chapter kept, got %s", got.Chapters[1].Status)
	}
	if got.Selected == nil || *got.Selected != 1 {
		t.Errorf("Expected selection 1, got %v", got.Selected)
	}
	if got.ImproveStyle {
		t.Errorf("Expected style flag restored as false")
	}
	if state.Chapters[0].Status != models.StatusProcessing {
		t.Errorf("Restore mutated the snapshot it was given")
	}

	if err := s.RequestCorrection(context.Background(), 0); err != nil {
		t.Fatalf("RequestCorrection after restore failed: %v", err)
	}
}
