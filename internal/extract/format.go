// Package extract reads the plain text out of uploaded manuscripts.
package extract

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type, please upload a .docx, .epub or .txt file")
	ErrReadFailure       = errors.New("failed to read file")
)

// Format extracts text from one kind of document
type Format interface {
	Name() string
	Extensions() []string
	MIMETypes() []string
	Extract(data []byte) (string, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Text extracts the text of an uploaded file. The declared content type wins
// when it is known; otherwise the file extension decides.
func Text(filename, contentType string, data []byte) (string, error) {
	f := lookup(filename, contentType)
	if f == nil {
		return "", fmt.Errorf("%w (%s)", ErrUnsupportedFormat, describe(filename, contentType))
	}

	text, err := f.Extract(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrReadFailure, f.Name(), err)
	}
	return text, nil
}

// File extracts the text of a document on disk
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return Text(path, "", data)
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

func lookup(filename, contentType string) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		for _, f := range registry {
			for _, m := range f.MIMETypes() {
				if mediaType == m {
					return f
				}
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return nil
}

func describe(filename, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return "unknown type"
}
