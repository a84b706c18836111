package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]models.SessionState, 0, len(sessions))
	for _, session := range sessions {
		sessionList = append(sessionList, session.Snapshot())
	}
	sort.Slice(sessionList, func(i, j int) bool {
		return sessionList[i].CreatedAt.After(sessionList[j].CreatedAt)
	})
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session.Snapshot())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	h.sessionStore.Delete(session.ID())
	if h.snapshots != nil {
		if err := h.snapshots.Delete(session.ID()); err != nil {
			slog.Error("Unable to delete persisted session", "session_id", session.ID(), "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Index == nil {
		h.writeError(w, "index is required", http.StatusBadRequest)
		return
	}

	if err := session.Select(*request.Index); err != nil {
		h.writeError(w, err.Error(), statusFor(err))
		return
	}
	h.persist(session)
	h.writeJSON(w, session.Snapshot())
}

// HandleStyle sets the improve-style flag when the body carries one and
// toggles it otherwise.
func (h *Handler) HandleStyle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		ImproveStyle *bool `json:"improve_style"`
	}
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImproveStyle != nil {
		session.SetImproveStyle(*request.ImproveStyle)
	} else {
		session.ToggleImproveStyle()
	}
	h.persist(session)
	h.writeJSON(w, session.Snapshot())
}

func (h *Handler) HandleDismissError(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	session.DismissError()
	h.persist(session)
	h.writeJSON(w, session.Snapshot())
}
