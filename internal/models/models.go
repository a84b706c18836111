package models

import "time"

// ChapterStatus is the review state of a single chapter
type ChapterStatus string

const (
	StatusPending    ChapterStatus = "PENDING"
	StatusProcessing ChapterStatus = "PROCESSING"
	StatusReviewing  ChapterStatus = "REVIEWING"
	StatusDone       ChapterStatus = "DONE"
)

// Phase is the document-level processing phase of a session
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseProcessing Phase = "PROCESSING"
	PhaseReviewing  Phase = "REVIEWING"
)

// Chapter represents one segment of an uploaded manuscript
type Chapter struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	OriginalContent  string        `json:"original_content"`
	CorrectedContent string        `json:"corrected_content"`
	Status           ChapterStatus `json:"status"`
}

// Section is the final title/content pair handed to exporters
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SessionState is a point-in-time copy of a correction session
type SessionState struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name,omitempty"`
	Phase        Phase     `json:"phase"`
	Chapters     []Chapter `json:"chapters"`
	Selected     *int      `json:"selected,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	ImproveStyle bool      `json:"improve_style"`
	AllDone      bool      `json:"all_done"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
