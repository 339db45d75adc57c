// Package toc derives a table of contents from an ordered section list.
package toc

import (
	"strings"

	"manualgen/internal/manual"
	"manualgen/internal/outline"
)

// Ref is an opaque forward reference that renderers resolve to a page or anchor.
type Ref string

// Entry is one line of the table of contents.
type Entry struct {
	Number      string `json:"number"`
	Title       string `json:"title"`
	IndentLevel int    `json:"indent_level"`
	TargetRef   Ref    `json:"target_ref"`
}

// Build returns one entry per section in document order.
func Build(sections []manual.Section) ([]Entry, error) {
	nodes, err := outline.Resolve(manual.Numbers(sections), outline.MaxHeadingLevel)
	if err != nil {
		return nil, err
	}
	return FromNodes(sections, nodes), nil
}

// FromNodes pairs already validated nodes with their sections. Both slices must
// be the same length and in the same order.
func FromNodes(sections []manual.Section, nodes []outline.Node) []Entry {
	entries := make([]Entry, 0, len(sections))
	for i, s := range sections {
		n := nodes[i]
		entries = append(entries, Entry{
			Number:      n.Number,
			Title:       s.Title,
			IndentLevel: n.Depth - 1,
			TargetRef:   RefFor(n.Path),
		})
	}
	return entries
}

// RefFor returns the anchor used for the section at path, e.g. "section-2-3-1".
func RefFor(path outline.Path) Ref {
	return Ref("section-" + strings.ReplaceAll(path.String(), ".", "-"))
}

// Label formats an entry as "number title".
func (e Entry) Label() string {
	if e.Title == "" {
		return e.Number
	}
	return e.Number + " " + e.Title
}
