package render

import (
	"fmt"
	"strings"

	"manualgen/internal/assembler"
)

var rtfHeadingSize = map[int]string{1: `\fs28`, 2: `\fs24`, 3: `\fs22`}

// RTF renders the document as a standalone RTF file: centered title, subject
// and date, a tab-indented table of contents, a page break, then the
// sections. Unresolved blocks are colored red when highlighting is enabled.
func RTF(doc *assembler.Document, opts Options) string {
	var lines []string
	add := func(s string) { lines = append(lines, s) }

	add(`{\rtf1\ansi\deff0`)
	add(`{\fonttbl{\f0 Times New Roman;}{\f1 Arial;}}`)
	add(`{\colortbl;\red0\green0\blue0;\red192\green0\blue0;}`)

	title := strings.TrimSpace(doc.Metadata.Title)
	if title == "" {
		title = assembler.DefaultTitle
	}
	add(`\pard\qc\f0\fs36\b ` + rtfEscape(title) + `\b0\fs24\par`)
	add(`\par`)
	if s := strings.TrimSpace(doc.Metadata.Subject); s != "" {
		add(`\pard\qc\f0\fs20\b Subject: ` + rtfEscape(s) + `\b0\par`)
		add(`\par`)
	}
	if !doc.Metadata.GeneratedAt.IsZero() {
		add(`\pard\qc\f0\fs16 Generated: ` + doc.Metadata.GeneratedAt.Format(DateLayout) + `\par`)
		add(`\par\par`)
	}

	for _, b := range doc.Blocks {
		color := ""
		if opts.HighlightUnresolved && len(b.Unresolved) > 0 {
			color = `\cf2`
		}
		switch b.Kind {
		case assembler.BlockTOC:
			add(`\pard\ql\f0\fs24\b\ul TABLE OF CONTENTS\ul0\b0\par`)
			add(`\par`)
			for _, e := range b.Entries {
				add(`\pard\ql\f0\fs18` + strings.Repeat(`\tab`, e.IndentLevel) + ` ` + rtfEscape(e.Label()) + `\par`)
			}
			add(`\par\par`)
			add(`\page`)
		case assembler.BlockHeading:
			size, ok := rtfHeadingSize[b.Level]
			if !ok {
				size = `\fs22`
			}
			mark := ""
			if b.Anchor != "" {
				mark = fmt.Sprintf(`{\*\bkmkstart %s}{\*\bkmkend %s}`, b.Anchor, b.Anchor)
			}
			add(`\pard\ql\keepn\f0` + size + color + `\b ` + mark + rtfEscape(b.Text) + `\b0\cf0\par`)
			add(`\par`)
		case assembler.BlockParagraph:
			add(`\pard\ql\f0\fs20` + color + ` ` + rtfEscape(b.Text) + `\cf0\par`)
			add(`\par`)
		case assembler.BlockListItem:
			add(`\pard\ql\fi-360\li720\f0\fs20` + color + ` \bullet\tab ` + rtfEscape(b.Text) + `\cf0\par`)
		case assembler.BlockBreak:
			add(`\par`)
		}
	}

	add(`}`)
	return strings.Join(lines, "\n") + "\n"
}

// rtfEscape escapes RTF control characters and writes non-ASCII runes as
// \uN? escapes, using UTF-16 surrogate pairs above the BMP.
func rtfEscape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString(`\tab `)
		case r == '\n':
			sb.WriteString(`\line `)
		case r < 0x80:
			sb.WriteRune(r)
		case r <= 0xFFFF:
			writeRTFUnit(&sb, r)
		default:
			r -= 0x10000
			writeRTFUnit(&sb, 0xD800+(r>>10))
			writeRTFUnit(&sb, 0xDC00+(r&0x3FF))
		}
	}
	return sb.String()
}

// RTF \u takes a signed 16-bit value.
func writeRTFUnit(sb *strings.Builder, unit rune) {
	fmt.Fprintf(sb, `\u%d?`, int16(uint16(unit)))
}
