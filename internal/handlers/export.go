package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/manuscript/internal/export"
)

// HandleExport downloads the corrected manuscript once every chapter is DONE
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	sections, err := session.ExportSections()
	if err != nil {
		h.writeError(w, err.Error(), statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDocx(&buf, sections); err != nil {
		session.ReportError(err)
		h.persist(session)
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Exporting manuscript", "session_id", session.ID(), "chapters", len(sections), "bytes", buf.Len())
	h.writeAttachment(w, export.DefaultFileName, export.DocxContentType, buf.Bytes())
}

// HandleDataset downloads the session's original/corrected pairs as Parquet
func (h *Handler) HandleDataset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := export.WriteDataset(&buf, session.Snapshot()); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeAttachment(w, session.ID()+".parquet", "application/vnd.apache.parquet", buf.Bytes())
}

func (h *Handler) writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write download", "file", filename, "err", err)
	}
}
