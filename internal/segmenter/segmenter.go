// Package segmenter splits raw manuscript text into chapters.
package segmenter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
)

const (
	FullDocumentID    = "full_doc"
	FullDocumentTitle = "Documento Completo"
)

// markerRegex matches a whole chapter marker line such as "Capítulo 3: El viaje".
// Only spaces and tabs may separate the keyword from the number so a marker
// never spans two lines.
var markerRegex = regexp.MustCompile(`(?im)^[ \t]*(?:cap[íi]tulo|chapter)[ \t]+\d+[^\n]*`)

// Segment splits text into chapters in order of appearance.
//
// Text without any marker becomes a single full-document chapter. Otherwise
// anything before the first marker is discarded and each marker starts a new
// chapter whose body runs until the next marker. Chapters whose body is empty
// after trimming are dropped, so the result can be empty.
func Segment(text string) []models.Chapter {
	locs := markerRegex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []models.Chapter{{
			ID:              FullDocumentID,
			Title:           FullDocumentTitle,
			OriginalContent: strings.TrimSpace(text),
			Status:          models.StatusPending,
		}}
	}

	chapters := make([]models.Chapter, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		title := FormatTitle(text[loc[0]:loc[1]])
		body := strings.TrimSpace(text[loc[1]:end])
		if title == "" || body == "" {
			continue
		}

		// ids follow the marker's slot in the split sequence
		// [preamble, title, body, title, body, ...]
		chapters = append(chapters, models.Chapter{
			ID:              fmt.Sprintf("chapter_%d", 2*i+1),
			Title:           title,
			OriginalContent: body,
			Status:          models.StatusPending,
		})
	}

	return chapters
}

// FormatTitle sentence-cases a marker line. When the line has a colon the parts
// before and after the first colon are cased separately and rejoined as
// "Main: Subtitle". Applying FormatTitle twice gives the same result as once.
func FormatTitle(line string) string {
	line = strings.TrimSpace(line)

	main, subtitle, found := strings.Cut(line, ":")
	if !found {
		return sentenceCase(line)
	}

	main = sentenceCase(strings.TrimSpace(main))
	subtitle = sentenceCase(strings.TrimSpace(subtitle))
	if subtitle == "" {
		return main
	}
	return main + ": " + subtitle
}

// sentenceCase upper-cases the first rune and lower-cases the rest. Runes are
// mapped one to one so the result never grows (no "ß" -> "SS").
func sentenceCase(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)

	var b strings.Builder
	b.Grow(len(s))
	b.WriteRune(unicode.ToUpper(first))
	for _, r := range s[size:] {
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
