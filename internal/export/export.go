// Package export writes finished manuscripts and correction artifacts.
package export

import (
	"errors"
	"strings"
)

const (
	// DefaultFileName is the name offered for the corrected manuscript download
	DefaultFileName = "Manuscrito_Corregido.docx"
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrExportFailure wraps every error raised while producing an export
var ErrExportFailure = errors.New("export failed")

// Sanitize removes control characters that are illegal in OOXML. Tab, line
// feed and carriage return are kept.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r <= 0x1F, r >= 0x7F && r <= 0x9F:
			return -1
		}
		return r
	}, s)
}

// paragraphs splits chapter content on newlines, dropping blank lines
func paragraphs(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
