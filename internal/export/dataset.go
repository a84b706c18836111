package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
	"github.com/parquet-go/parquet-go"
)

// DatasetRecord is one original/corrected chapter pair
type DatasetRecord struct {
	SessionID    string `json:"session_id" parquet:"session_id"`
	FileName     string `json:"file_name" parquet:"file_name"`
	ChapterID    string `json:"chapter_id" parquet:"chapter_id"`
	Title        string `json:"title" parquet:"title"`
	Original     string `json:"original" parquet:"original"`
	Corrected    string `json:"corrected" parquet:"corrected"`
	Status       string `json:"status" parquet:"status"`
	ImproveStyle bool   `json:"improve_style" parquet:"improve_style"`
}

// DatasetRecords returns a record for every chapter that has a correction
func DatasetRecords(state models.SessionState) []DatasetRecord {
	var records []DatasetRecord
	for _, ch := range state.Chapters {
		if ch.CorrectedContent == "" {
			continue
		}
		records = append(records, DatasetRecord{
			SessionID:    state.ID,
			FileName:     state.FileName,
			ChapterID:    ch.ID,
			Title:        ch.Title,
			Original:     ch.OriginalContent,
			Corrected:    ch.CorrectedContent,
			Status:       string(ch.Status),
			ImproveStyle: state.ImproveStyle,
		})
	}
	return records
}

// WriteDataset writes the session's correction pairs as Parquet and returns
// the number of rows written.
func WriteDataset(w io.Writer, state models.SessionState) (int, error) {
	records := DatasetRecords(state)

	writer := parquet.NewGenericWriter[DatasetRecord](w)
	n, err := writer.Write(records)
	if err != nil {
		_ = writer.Close()
		return n, fmt.Errorf("%w: writing dataset rows: %w", ErrExportFailure, err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("%w: closing dataset: %w", ErrExportFailure, err)
	}

	slog.Debug("Wrote correction dataset", "session_id", state.ID, "rows", n)
	return n, nil
}
