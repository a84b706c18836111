package extract

import (
	"strings"
	"unicode/utf8"
)

// TextFormat implements Format for plain text files.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt", ".text", ".md", ".markdown"} }
func (f *TextFormat) MIMETypes() []string  { return []string{"text/plain", "text/markdown"} }

func (f *TextFormat) Extract(data []byte) (string, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return text, nil
}
