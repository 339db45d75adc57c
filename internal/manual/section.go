// Package manual holds the typed input records of a policy manual and the
// boundary code that decodes them from content files.
package manual

import (
	"strings"
)

// Section is one numbered unit of outline content. Sections are read-only once built.
type Section struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// NewSection trims the number and title. The body is kept verbatim.
func NewSection(number, title, body string) Section {
	return Section{
		Number: strings.TrimSpace(number),
		Title:  strings.TrimSpace(title),
		Body:   body,
	}
}

// Numbers returns the section numbers in order.
func Numbers(sections []Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Number
	}
	return out
}
