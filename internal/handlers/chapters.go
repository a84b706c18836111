package handlers

import (
	"context"
	"net/http"

	"github.com/lehigh-university-libraries/manuscript/internal/review"
)

// HandleCorrectChapter starts a correction and answers 202 with the chapter in
// PROCESSING. With ?wait=true it answers once the correction has settled.
// Requests for a missing chapter, a DONE chapter or one already in flight
// change nothing and answer 200 with the current state.
func (h *Handler) HandleCorrectChapter(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	index, ok := h.chapterIndexOrError(w, r)
	if !ok {
		return
	}

	job := session.StartCorrection(index)
	if job == nil {
		h.writeJSON(w, session.Snapshot())
		return
	}
	h.persist(session)

	jobs := []*review.Job{job}
	if r.URL.Query().Get("wait") == "true" {
		h.runAndRespond(w, r, session, jobs)
		return
	}
	h.runInBackground(r, session, jobs)
	h.writeJSONStatus(w, http.StatusAccepted, session.Snapshot())
}

func (h *Handler) HandleAcceptChapter(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	index, ok := h.chapterIndexOrError(w, r)
	if !ok {
		return
	}

	if err := session.AcceptCorrection(index); err != nil {
		h.writeError(w, err.Error(), statusFor(err))
		return
	}
	h.persist(session)
	h.writeJSON(w, session.Snapshot())
}

// HandleCorrectAll starts a correction for every PENDING chapter, at most
// the configured number at a time.
func (h *Handler) HandleCorrectAll(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	jobs := session.StartAll()
	if len(jobs) == 0 {
		h.writeJSON(w, session.Snapshot())
		return
	}
	h.persist(session)

	if r.URL.Query().Get("wait") == "true" {
		h.runAndRespond(w, r, session, jobs)
		return
	}
	h.runInBackground(r, session, jobs)
	h.writeJSONStatus(w, http.StatusAccepted, session.Snapshot())
}

func (h *Handler) runAndRespond(w http.ResponseWriter, r *http.Request, session *review.Session, jobs []*review.Job) {
	err := review.RunJobs(r.Context(), jobs, h.concurrency)
	h.persist(session)
	if err != nil {
		h.writeJSONStatus(w, statusFor(err), session.Snapshot())
		return
	}
	h.writeJSON(w, session.Snapshot())
}

// runInBackground keeps corrections running after the request returns
func (h *Handler) runInBackground(r *http.Request, session *review.Session, jobs []*review.Job) {
	ctx := context.WithoutCancel(r.Context())
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		// failures are recorded on the session
		_ = review.RunJobs(ctx, jobs, h.concurrency)
		h.persist(session)
	}()
}
