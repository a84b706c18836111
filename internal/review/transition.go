package review

import (
	"github.com/lehigh-university-libraries/manuscript/internal/models"
)

// EventKind identifies something that happened to a chapter
type EventKind int

const (
	CorrectionRequested EventKind = iota
	CorrectionSucceeded
	CorrectionFailed
	Accepted
)

func (k EventKind) String() string {
	switch k {
	case CorrectionRequested:
		return "correction_requested"
	case CorrectionSucceeded:
		return "correction_succeeded"
	case CorrectionFailed:
		return "correction_failed"
	case Accepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Event is the input of a chapter transition. Text carries the corrected
// content for CorrectionSucceeded and is ignored otherwise.
type Event struct {
	Kind EventKind
	Text string
}

// Effect is a side effect the caller must perform after a transition
type Effect int

const (
	EffectNone Effect = iota
	EffectInvokeCorrector
)

// Transition computes the next state of a chapter for an event. It never
// mutates its input.
//
// DONE is terminal. A chapter already PROCESSING ignores further requests, and
// correction outcomes only apply to a chapter that is still PROCESSING. A failed
// correction leaves any earlier corrected content in place.
func Transition(ch models.Chapter, ev Event) (models.Chapter, Effect) {
	if ch.Status == models.StatusDone {
		return ch, EffectNone
	}

	switch ev.Kind {
	case CorrectionRequested:
		if ch.Status == models.StatusProcessing {
			return ch, EffectNone
		}
		ch.Status = models.StatusProcessing
		return ch, EffectInvokeCorrector
	case CorrectionSucceeded:
		if ch.Status != models.StatusProcessing {
			return ch, EffectNone
		}
		ch.CorrectedContent = ev.Text
		ch.Status = models.StatusReviewing
	case CorrectionFailed:
		if ch.Status != models.StatusProcessing {
			return ch, EffectNone
		}
		ch.Status = models.StatusPending
	case Accepted:
		ch.Status = models.StatusDone
	}

	return ch, EffectNone
}

// AllDone reports whether there is at least one chapter and every chapter is DONE.
func AllDone(chapters []models.Chapter) bool {
	if len(chapters) == 0 {
		return false
	}
	for _, ch := range chapters {
		if ch.Status != models.StatusDone {
			return false
		}
	}
	return true
}

// ResolveExportContent picks the final text of every chapter: the corrected
// content of an accepted chapter when there is one, the original otherwise.
func ResolveExportContent(chapters []models.Chapter) []models.Section {
	sections := make([]models.Section, 0, len(chapters))
	for _, ch := range chapters {
		content := ch.OriginalContent
		if ch.Status == models.StatusDone && ch.CorrectedContent != "" {
			content = ch.CorrectedContent
		}
		sections = append(sections, models.Section{Title: ch.Title, Content: content})
	}
	return sections
}
