package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/manuscript/internal/metrics"
	"github.com/lehigh-university-libraries/manuscript/internal/models"
	"gopkg.in/yaml.v3"
)

// ReportConfig records how a batch correction run was configured
type ReportConfig struct {
	File         string `yaml:"file"`
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	ImproveStyle bool   `yaml:"improvestyle"`
	Concurrency  int    `yaml:"concurrency"`
	Timestamp    string `yaml:"timestamp"`
}

type ChapterReport struct {
	ID              string               `yaml:"id"`
	Title           string               `yaml:"title"`
	Status          string               `yaml:"status"`
	OriginalLength  int                  `yaml:"originallength"`
	CorrectedLength int                  `yaml:"correctedlength"`
	Changes         *metrics.ChangeStats `yaml:"changes,omitempty"`
}

type ReportSummary struct {
	Total             int     `yaml:"total"`
	Corrected         int     `yaml:"corrected"`
	Failed            int     `yaml:"failed"`
	AverageSimilarity float64 `yaml:"averagesimilarity"`
	LastError         string  `yaml:"lasterror,omitempty"`
}

// Report is the YAML summary of a batch correction run
type Report struct {
	Config   ReportConfig    `yaml:"config"`
	Chapters []ChapterReport `yaml:"chapters"`
	Summary  ReportSummary   `yaml:"summary"`
}

// NewReport summarizes a session after a batch run. A chapter counts as
// corrected once it holds corrected content; anything else failed.
func NewReport(state models.SessionState, provider, model string, concurrency int) Report {
	report := Report{
		Config: ReportConfig{
			File:         state.FileName,
			Provider:     provider,
			Model:        model,
			ImproveStyle: state.ImproveStyle,
			Concurrency:  concurrency,
			Timestamp:    time.Now().Format(time.RFC3339),
		},
		Chapters: make([]ChapterReport, 0, len(state.Chapters)),
		Summary: ReportSummary{
			Total:     len(state.Chapters),
			LastError: state.LastError,
		},
	}

	var changes []metrics.ChangeStats
	for _, ch := range state.Chapters {
		chapter := ChapterReport{
			ID:              ch.ID,
			Title:           ch.Title,
			Status:          string(ch.Status),
			OriginalLength:  len([]rune(ch.OriginalContent)),
			CorrectedLength: len([]rune(ch.CorrectedContent)),
		}
		if ch.CorrectedContent != "" {
			stats := metrics.CompareText(ch.OriginalContent, ch.CorrectedContent)
			chapter.Changes = &stats
			changes = append(changes, stats)
			report.Summary.Corrected++
		} else {
			report.Summary.Failed++
		}
		report.Chapters = append(report.Chapters, chapter)
	}
	report.Summary.AverageSimilarity = metrics.AverageSimilarity(changes)

	return report
}

// SaveReport writes the report as YAML, creating parent directories
func SaveReport(path string, report Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating report directory: %w", ErrExportFailure, err)
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: marshaling report: %w", ErrExportFailure, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing report: %w", ErrExportFailure, err)
	}
	return nil
}
