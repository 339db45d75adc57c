// Package normalize turns AI-authored section bodies into classified lines
// with authoring markup removed.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a normalized line.
type Kind string

const (
	Heading   Kind = "heading"
	Paragraph Kind = "paragraph"
	ListItem  Kind = "list_item"
	// Break separates logical groups; it carries no text.
	Break Kind = "break"
)

// Line is one classified unit of body content. Level is 0 unless Kind is Heading.
type Line struct {
	Kind  Kind   `json:"kind"`
	Level int    `json:"level"`
	Text  string `json:"text,omitempty"`
}

// Normalize splits body into lines and classifies each one.
// Blank-line runs collapse into a single Break; leading and trailing breaks are dropped.
func Normalize(body string) []Line {
	var out []Line
	pendingBreak := false

	for _, raw := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || isThematicBreak(trimmed) {
			pendingBreak = len(out) > 0
			continue
		}

		line, ok := classify(trimmed)
		if !ok {
			continue
		}
		if pendingBreak {
			out = append(out, Line{Kind: Break})
			pendingBreak = false
		}
		out = append(out, line)
	}
	return out
}

func classify(trimmed string) (Line, bool) {
	if level, rest, ok := headingMarker(trimmed); ok {
		text := StripInline(rest)
		if text == "" {
			return Line{}, false
		}
		return Line{Kind: Heading, Level: level, Text: text}, true
	}
	if rest, ok := bulletMarker(trimmed); ok {
		text := StripInline(rest)
		if text == "" {
			return Line{}, false
		}
		return Line{Kind: ListItem, Text: text}, true
	}
	text := StripInline(trimmed)
	if text == "" {
		return Line{}, false
	}
	return Line{Kind: Paragraph, Text: text}, true
}

// headingMarker recognizes "#".."######" followed by a space.
func headingMarker(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(line) || line[level] != ' ' {
		return 0, "", false
	}
	rest := strings.TrimSpace(line[level:])
	rest = strings.TrimSpace(strings.TrimRight(rest, "#"))
	return level, rest, true
}

// bulletMarker strips "-", "*", "•" or "<int>." and any whitespace after it.
// Stacked symbol markers ("- • x") collapse to a single item.
func bulletMarker(line string) (string, bool) {
	rest, ok := stripOneBullet(line)
	if !ok {
		return "", false
	}
	for rest != "" && strings.ContainsRune("-*•", firstRune(rest)) {
		next, again := stripOneBullet(rest)
		if !again {
			break
		}
		rest = next
	}
	return rest, true
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func stripOneBullet(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	r, size := utf8.DecodeRuneInString(line)
	switch r {
	case '•':
		return strings.TrimLeftFunc(line[size:], unicode.IsSpace), true
	case '-', '*':
		if size == len(line) {
			return "", true
		}
		next, _ := utf8.DecodeRuneInString(line[size:])
		if unicode.IsSpace(next) {
			return strings.TrimLeftFunc(line[size:], unicode.IsSpace), true
		}
		return "", false
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits >= len(line) || line[digits] != '.' {
		return "", false
	}
	after := line[digits+1:]
	if after == "" {
		return "", true
	}
	next, _ := utf8.DecodeRuneInString(after)
	if !unicode.IsSpace(next) {
		return "", false
	}
	return strings.TrimLeftFunc(after, unicode.IsSpace), true
}

func isThematicBreak(line string) bool {
	compact := strings.ReplaceAll(line, " ", "")
	if len(compact) < 3 {
		return false
	}
	c := compact[0]
	if c != '-' && c != '*' && c != '_' && c != '=' {
		return false
	}
	return strings.Count(compact, string(c)) == len(compact)
}
