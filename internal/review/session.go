// Package review drives chapters of a manuscript through correction and
// acceptance.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
	"github.com/lehigh-university-libraries/manuscript/internal/segmenter"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSegmentationEmpty = errors.New("no chapters could be detected; make sure the document uses markers like 'Capítulo 1'")
	ErrCorrectionFailed  = errors.New("correction failed")
	ErrChapterNotFound   = errors.New("chapter not found")
	ErrNotAllDone        = errors.New("every chapter must be accepted before exporting")
	ErrBusy              = errors.New("a document is already being processed")
)

// Corrector rewrites a chapter's text. It is the only call a session makes
// that can block for a long time.
type Corrector interface {
	Correct(ctx context.Context, text string, improveStyle bool) (string, error)
}

// CorrectorFunc adapts a function to the Corrector interface
type CorrectorFunc func(ctx context.Context, text string, improveStyle bool) (string, error)

func (f CorrectorFunc) Correct(ctx context.Context, text string, improveStyle bool) (string, error) {
	return f(ctx, text, improveStyle)
}

// Session owns one uploaded document and every chapter in it. All writes go
// through its methods under a single lock; the correction call itself runs
// outside the lock so chapters can be corrected concurrently.
type Session struct {
	mu           sync.RWMutex
	id           string
	fileName     string
	phase        models.Phase
	chapters     []models.Chapter
	selected     int
	lastError    string
	improveStyle bool
	generation   int
	createdAt    time.Time
	updatedAt    time.Time

	corrector Corrector
	logger    *slog.Logger
}

// NewSession returns an idle session with style improvement enabled
func NewSession(id string, corrector Corrector) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		phase:        models.PhaseIdle,
		selected:     -1,
		improveStyle: true,
		createdAt:    now,
		updatedAt:    now,
		corrector:    corrector,
		logger:       slog.With("session_id", id),
	}
}

// Restore rebuilds a session from a snapshot. Work that was in flight when the
// snapshot was taken is lost, so those chapters go back to PENDING and an
// interrupted upload leaves the session idle.
func Restore(state models.SessionState, corrector Corrector) *Session {
	s := NewSession(state.ID, corrector)
	s.fileName = state.FileName
	s.phase = state.Phase
	s.lastError = state.LastError
	s.improveStyle = state.ImproveStyle
	s.createdAt = state.CreatedAt
	s.updatedAt = state.UpdatedAt

	if s.phase == models.PhaseProcessing {
		s.phase = models.PhaseIdle
	}

	s.chapters = make([]models.Chapter, len(state.Chapters))
	copy(s.chapters, state.Chapters)
	for i := range s.chapters {
		if s.chapters[i].Status == models.StatusProcessing {
			s.chapters[i].Status = models.StatusPending
		}
	}

	if state.Selected != nil && *state.Selected >= 0 && *state.Selected < len(s.chapters) {
		s.selected = *state.Selected
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Ingest loads a new document into the session, replacing any previous one.
// extract supplies the raw text. On failure the session returns to IDLE with
// the failure recorded as its last error.
func (s *Session) Ingest(ctx context.Context, fileName string, extract func(context.Context) (string, error)) error {
	s.mu.Lock()
	if s.phase == models.PhaseProcessing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.phase = models.PhaseProcessing
	s.fileName = fileName
	s.chapters = nil
	s.selected = -1
	s.lastError = ""
	s.generation++
	s.touch()
	s.mu.Unlock()

	s.logger.Info("Processing document", "file", fileName)

	text, err := extract(ctx)
	if err != nil {
		s.logger.Error("Failed to extract document text", "file", fileName, "err", err)
		s.failIngest(err.Error())
		return err
	}

	chapters := segmenter.Segment(text)
	if len(chapters) == 0 {
		s.logger.Warn("No chapters detected", "file", fileName)
		s.failIngest(ErrSegmentationEmpty.Error())
		return ErrSegmentationEmpty
	}

	s.mu.Lock()
	s.chapters = chapters
	s.selected = 0
	s.phase = models.PhaseReviewing
	s.touch()
	s.mu.Unlock()

	s.logger.Info("Document segmented", "file", fileName, "chapters", len(chapters))
	return nil
}

func (s *Session) failIngest(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = models.PhaseIdle
	s.lastError = message
	s.touch()
}

// Select marks a chapter as the one being viewed
func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.selected = index
	s.touch()
	return nil
}

// ToggleImproveStyle flips the style flag and returns the new value. Only
// corrections started afterwards see the change.
func (s *Session) ToggleImproveStyle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.improveStyle = !s.improveStyle
	s.touch()
	return s.improveStyle
}

func (s *Session) SetImproveStyle(improve bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.improveStyle = improve
	s.touch()
}

func (s *Session) ImproveStyle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.improveStyle
}

// Job is a correction that has moved its chapter to PROCESSING and still has
// to call the corrector.
type Job struct {
	session      *Session
	index        int
	generation   int
	chapterID    string
	text         string
	improveStyle bool
}

func (j *Job) ChapterID() string {
	return j.chapterID
}

// StartCorrection moves a chapter to PROCESSING and captures what the
// corrector needs. It returns nil when there is nothing to do: the index is
// out of range, the chapter is DONE or it is already being corrected.
func (s *Session) StartCorrection(index int) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.chapters) {
		s.logger.Debug("Ignoring correction request for a missing chapter", "index", index)
		return nil
	}

	ch := s.chapters[index]
	next, effect := Transition(ch, Event{Kind: CorrectionRequested})
	if effect != EffectInvokeCorrector {
		s.logger.Debug("Ignoring correction request", "chapter_id", ch.ID, "status", ch.Status)
		return nil
	}

	s.chapters[index] = next
	s.touch()
	return &Job{
		session:      s,
		index:        index,
		generation:   s.generation,
		chapterID:    ch.ID,
		text:         ch.OriginalContent,
		improveStyle: s.improveStyle,
	}
}

// Run calls the corrector and records the outcome on the job's chapter only.
// A failure puts the chapter back to PENDING, sets the session's last error
// and is returned wrapped in ErrCorrectionFailed.
func (j *Job) Run(ctx context.Context) error {
	s := j.session
	logger := s.logger.With("chapter_id", j.chapterID, "improve_style", j.improveStyle)
	logger.Info("Requesting correction")

	if s.corrector == nil {
		err := fmt.Errorf("%w: no correction service configured", ErrCorrectionFailed)
		s.finish(j, Event{Kind: CorrectionFailed}, err.Error())
		return err
	}

	corrected, err := s.corrector.Correct(ctx, j.text, j.improveStyle)
	if err != nil {
		logger.Error("Correction failed", "err", err)
		s.finish(j, Event{Kind: CorrectionFailed}, fmt.Sprintf("Could not correct chapter %s: %v", j.chapterID, err))
		return fmt.Errorf("%w: chapter %s: %w", ErrCorrectionFailed, j.chapterID, err)
	}

	s.finish(j, Event{Kind: CorrectionSucceeded, Text: corrected}, "")
	logger.Info("Correction ready for review", "length", len(corrected))
	return nil
}

func (s *Session) finish(j *Job, ev Event, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the document was replaced while the correction was running
	if j.generation != s.generation || j.index >= len(s.chapters) || s.chapters[j.index].ID != j.chapterID {
		s.logger.Warn("Dropping stale correction result", "chapter_id", j.chapterID, "event", ev.Kind)
		return
	}

	s.chapters[j.index], _ = Transition(s.chapters[j.index], ev)
	if message != "" {
		s.lastError = message
	}
	s.touch()
}

// RequestCorrection corrects one chapter and waits for the result
func (s *Session) RequestCorrection(ctx context.Context, index int) error {
	job := s.StartCorrection(index)
	if job == nil {
		return nil
	}
	return job.Run(ctx)
}

// CorrectAll requests a correction for every PENDING chapter, running at most
// limit corrections at a time. A failure does not stop the other chapters;
// all failures are joined in the returned error.
func (s *Session) CorrectAll(ctx context.Context, limit int) error {
	return RunJobs(ctx, s.StartAll(), limit)
}

// StartAll moves every PENDING chapter to PROCESSING and returns their jobs.
// Chapters that vanished because a new document was loaded meanwhile are
// skipped.
func (s *Session) StartAll() []*Job {
	s.mu.RLock()
	var pending []int
	for i, ch := range s.chapters {
		if ch.Status == models.StatusPending {
			pending = append(pending, i)
		}
	}
	s.mu.RUnlock()

	var jobs []*Job
	for _, i := range pending {
		if job := s.StartCorrection(i); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// RunJobs runs jobs with at most limit in flight. A limit of zero or less
// means no limit.
func RunJobs(ctx context.Context, jobs []*Job, limit int) error {
	var (
		g        errgroup.Group
		failMu   sync.Mutex
		failures []error
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, job := range jobs {
		g.Go(func() error {
			if err := job.Run(ctx); err != nil {
				failMu.Lock()
				failures = append(failures, err)
				failMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(failures...)
}

// AcceptCorrection marks a chapter DONE whatever its current status
func (s *Session) AcceptCorrection(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.chapters[index], _ = Transition(s.chapters[index], Event{Kind: Accepted})
	s.touch()
	return nil
}

func (s *Session) AllChaptersDone() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AllDone(s.chapters)
}

// ExportSections returns the final content of every chapter once all of them
// are accepted.
func (s *Session) ExportSections() ([]models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !AllDone(s.chapters) {
		return nil, ErrNotAllDone
	}
	return ResolveExportContent(s.chapters), nil
}

// ReportError records a message for the user without touching any chapter
func (s *Session) ReportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
	s.touch()
}

func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
	s.touch()
}

// Chapter returns a copy of one chapter
func (s *Session) Chapter(index int) (models.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIndex(index); err != nil {
		return models.Chapter{}, err
	}
	return s.chapters[index], nil
}

// Snapshot copies the whole session state under the read lock
func (s *Session) Snapshot() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chapters := make([]models.Chapter, len(s.chapters))
	copy(chapters, s.chapters)

	state := models.SessionState{
		ID:           s.id,
		FileName:     s.fileName,
		Phase:        s.phase,
		Chapters:     chapters,
		LastError:    s.lastError,
		ImproveStyle: s.improveStyle,
		AllDone:      AllDone(s.chapters),
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
	if s.selected >= 0 {
		selected := s.selected
		state.Selected = &selected
	}
	return state
}

func (s *Session) checkIndex(index int) error {
	if index < 0 || index >= len(s.chapters) {
		return fmt.Errorf("%w: index %d", ErrChapterNotFound, index)
	}
	return nil
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
