// Package render writes an assembled document in the supported output formats.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"manualgen/internal/assembler"
)

// Format names an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatRTF      Format = "rtf"
	FormatJSON     Format = "json"
	FormatDOCX     Format = "docx"
)

// DateLayout is how the generation date is printed in every format.
const DateLayout = "January 02, 2006"

// Options tunes rendering. The zero value renders without highlighting.
type Options struct {
	// HighlightUnresolved marks blocks that still contain placeholders.
	HighlightUnresolved bool
}

// ParseFormat accepts "markdown", "md", "rtf", "docx" and "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "rtf":
		return FormatRTF, nil
	case "json":
		return FormatJSON, nil
	case "docx":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatRTF:
		return ".rtf"
	case FormatDOCX:
		return ".docx"
	default:
		return ".json"
	}
}

// Bytes renders doc in format f.
func Bytes(doc *assembler.Document, f Format, opts Options) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(Markdown(doc, opts)), nil
	case FormatRTF:
		return []byte(RTF(doc, opts)), nil
	case FormatJSON:
		return JSON(doc)
	case FormatDOCX:
		return DOCX(doc, opts)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}

// WriteFiles renders doc once per format into dir as <base><ext> and returns the written paths.
func WriteFiles(dir, base string, doc *assembler.Document, formats []Format, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		b, err := Bytes(doc, f, opts)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, base+f.Extension())
		if err := os.WriteFile(path, b, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
