package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/lehigh-university-libraries/manuscript/internal/review"
	"github.com/lehigh-university-libraries/manuscript/internal/storage"
)

// Options configures a Handler. Snapshots may be nil, in which case sessions
// only live in memory.
type Options struct {
	Corrector   review.Corrector
	Snapshots   *storage.SnapshotStore
	StaticDir   string
	Concurrency int
}

type Handler struct {
	sessionStore *storage.SessionStore
	snapshots    *storage.SnapshotStore
	corrector    review.Corrector
	staticDir    string
	concurrency  int

	// background corrections
	jobs sync.WaitGroup
}

func New(opts Options) *Handler {
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	return &Handler{
		sessionStore: storage.New(),
		snapshots:    opts.Snapshots,
		corrector:    opts.Corrector,
		staticDir:    opts.StaticDir,
		concurrency:  opts.Concurrency,
	}
}

// Routes returns the mux serving the API, the healthcheck and static files
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", h.HandleUpload)
	mux.HandleFunc("GET /api/sessions", h.HandleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleSessionDetail)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/selection", h.HandleSelect)
	mux.HandleFunc("POST /api/sessions/{id}/style", h.HandleStyle)
	mux.HandleFunc("DELETE /api/sessions/{id}/error", h.HandleDismissError)
	mux.HandleFunc("POST /api/sessions/{id}/chapters/{index}/correct", h.HandleCorrectChapter)
	mux.HandleFunc("POST /api/sessions/{id}/chapters/{index}/accept", h.HandleAcceptChapter)
	mux.HandleFunc("POST /api/sessions/{id}/correct-all", h.HandleCorrectAll)
	mux.HandleFunc("GET /api/sessions/{id}/export", h.HandleExport)
	mux.HandleFunc("GET /api/sessions/{id}/dataset", h.HandleDataset)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("GET /", h.HandleStatic)
	return mux
}

// RestoreSessions loads every persisted snapshot back into memory
func (h *Handler) RestoreSessions() (int, error) {
	if h.snapshots == nil {
		return 0, nil
	}
	states, err := h.snapshots.List()
	if err != nil {
		return 0, err
	}
	for _, state := range states {
		h.sessionStore.Set(state.ID, review.Restore(state, h.corrector))
	}
	return len(states), nil
}

// Wait blocks until background corrections have finished
func (h *Handler) Wait() {
	h.jobs.Wait()
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*review.Session, bool) {
	session, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) chapterIndexOrError(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeError(w, "Invalid chapter index: "+r.PathValue("index"), http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

// persist saves the session's snapshot when a snapshot store is configured.
// Failures are logged; the in-memory session stays authoritative.
func (h *Handler) persist(session *review.Session) {
	if h.snapshots == nil {
		return
	}
	if err := h.snapshots.Save(session.Snapshot()); err != nil {
		slog.Error("Unable to persist session", "session_id", session.ID(), "err", err)
	}
}

// statusFor maps session errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, review.ErrChapterNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrNotAllDone), errors.Is(err, review.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, review.ErrCorrectionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}
