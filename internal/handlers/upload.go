package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/manuscript/internal/extract"
	"github.com/lehigh-university-libraries/manuscript/internal/review"
)

const maxUploadSize = 10 << 20

// HandleUpload ingests a manuscript. Passing session_id in the form replaces
// the document of an existing session; otherwise a new session is created.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, existing := h.sessionStore.Get(r.FormValue("session_id"))
	if !existing {
		session = review.NewSession(uuid.New().String(), h.corrector)
	}

	contentType := header.Header.Get("Content-Type")
	slog.Info("Received manuscript", "session_id", session.ID(), "file", header.Filename, "content_type", contentType, "size", len(data))

	err = session.Ingest(r.Context(), header.Filename, func(context.Context) (string, error) {
		return extract.Text(header.Filename, contentType, data)
	})
	if existing || err == nil {
		h.sessionStore.Set(session.ID(), session)
		h.persist(session)
	}
	if err != nil {
		h.writeError(w, err.Error(), statusFor(err))
		return
	}

	h.writeJSONStatus(w, http.StatusCreated, session.Snapshot())
}
