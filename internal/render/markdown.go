package render

import (
	"strings"

	"manualgen/internal/assembler"
)

// Markdown renders the document title block, a linked table of contents and
// every section. Section headings sit one level below the document title.
func Markdown(doc *assembler.Document, opts Options) string {
	var sb strings.Builder
	title := strings.TrimSpace(doc.Metadata.Title)
	if title == "" {
		title = assembler.DefaultTitle
	}
	sb.WriteString("# " + title + "\n\n")
	if s := strings.TrimSpace(doc.Metadata.Subject); s != "" {
		sb.WriteString("**Subject:** " + s + "\n\n")
	}
	if !doc.Metadata.GeneratedAt.IsZero() {
		sb.WriteString("_Generated: " + doc.Metadata.GeneratedAt.Format(DateLayout) + "_\n\n")
	}

	inList := false
	endList := func() {
		if inList {
			sb.WriteString("\n")
			inList = false
		}
	}

	for _, b := range doc.Blocks {
		if b.Kind != assembler.BlockListItem {
			endList()
		}
		switch b.Kind {
		case assembler.BlockTOC:
			writeMarkdownTOC(&sb, b)
		case assembler.BlockHeading:
			if b.Anchor != "" {
				sb.WriteString(`<a id="` + string(b.Anchor) + `"></a>` + "\n\n")
			}
			sb.WriteString(strings.Repeat("#", min(b.Level+1, 6)) + " " + b.Text + markdownFlag(b, opts) + "\n\n")
		case assembler.BlockParagraph:
			sb.WriteString(b.Text + markdownFlag(b, opts) + "\n\n")
		case assembler.BlockListItem:
			sb.WriteString("- " + b.Text + markdownFlag(b, opts) + "\n")
			inList = true
		case assembler.BlockBreak:
		}
	}
	endList()

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeMarkdownTOC(sb *strings.Builder, b assembler.Block) {
	sb.WriteString("## TABLE OF CONTENTS\n\n")
	if len(b.Entries) == 0 {
		return
	}
	for _, e := range b.Entries {
		sb.WriteString(strings.Repeat("  ", e.IndentLevel))
		sb.WriteString("- [" + e.Label() + "](#" + string(e.TargetRef) + ")\n")
	}
	sb.WriteString("\n---\n\n")
}

func markdownFlag(b assembler.Block, opts Options) string {
	if !opts.HighlightUnresolved || len(b.Unresolved) == 0 {
		return ""
	}
	return " _(unresolved: " + strings.Join(b.Unresolved, ", ") + ")_"
}
