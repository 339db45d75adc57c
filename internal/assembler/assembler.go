// Package assembler turns an ordered section list and a variable dictionary
// into a numbered, variable-resolved document model.
package assembler

import (
	"time"

	"manualgen/internal/manual"
	"manualgen/internal/normalize"
	"manualgen/internal/outline"
	"manualgen/internal/toc"
	"manualgen/internal/variables"
)

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "POLICY MANUAL"

// Fields reported on variable misses.
const (
	FieldSubject = "subject"
	FieldTitle   = "title"
	FieldBody    = "body"
)

// Options configures an Assembler. The zero value is usable.
type Options struct {
	Manual          string
	Title           string
	Subject         string
	MaxHeadingLevel int
	Style           variables.Style
	Now             func() time.Time
}

// Assembler is safe for concurrent use; it holds configuration only.
type Assembler struct {
	opts     Options
	resolver *variables.Resolver
}

// New returns an Assembler with defaults filled in.
func New(opts Options) *Assembler {
	if opts.MaxHeadingLevel <= 0 {
		opts.MaxHeadingLevel = outline.MaxHeadingLevel
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Style == "" {
		opts.Style = variables.Square
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Assembler{opts: opts, resolver: variables.NewResolver(opts.Style)}
}

// Assemble runs an Assembler with default options.
func Assemble(sections []manual.Section, vars variables.Dictionary) (*Document, []variables.Miss, error) {
	return New(Options{}).Assemble(sections, vars)
}

type resolvedSection struct {
	node        outline.Node
	title       string
	body        string
	titleMisses []variables.Miss
	bodyMisses  []variables.Miss
}

// Assemble validates the outline, builds the TOC and emits heading and content
// blocks for every section. Outline errors abort with no document. Variable
// misses are returned in document order and never abort.
func (a *Assembler) Assemble(sections []manual.Section, vars variables.Dictionary) (*Document, []variables.Miss, error) {
	nodes, err := outline.Resolve(manual.Numbers(sections), a.opts.MaxHeadingLevel)
	if err != nil {
		return nil, nil, err
	}

	var misses []variables.Miss
	subject, subjectMisses := a.resolve(a.opts.Subject, vars, "", FieldSubject)
	misses = append(misses, subjectMisses...)
	title, titleMisses := a.resolve(a.opts.Title, vars, "", FieldTitle)
	misses = append(misses, titleMisses...)

	resolved := make([]resolvedSection, len(sections))
	titled := make([]manual.Section, len(sections))
	for i, s := range sections {
		number := nodes[i].Number
		t, tm := a.resolve(s.Title, vars, number, FieldTitle)
		b, bm := a.resolve(s.Body, vars, number, FieldBody)
		t = normalize.StripInline(t)
		resolved[i] = resolvedSection{node: nodes[i], title: t, body: b, titleMisses: tm, bodyMisses: bm}
		titled[i] = manual.Section{Number: number, Title: t}
	}

	entries := toc.FromNodes(titled, nodes)
	blocks := make([]Block, 0, 1+len(sections)*4)
	blocks = append(blocks, Block{Kind: BlockTOC, Entries: entries})

	for i, rs := range resolved {
		misses = append(misses, rs.titleMisses...)
		misses = append(misses, rs.bodyMisses...)
		blocks = append(blocks, a.headingBlock(rs, entries[i].TargetRef))
		blocks = append(blocks, a.contentBlocks(rs)...)
	}

	doc := &Document{
		SchemaVersion: documentSchemaVersion,
		Metadata: Metadata{
			Manual:           a.opts.Manual,
			Title:            title,
			Subject:          subject,
			GeneratedAt:      a.opts.Now(),
			GeneratorVersion: GeneratorVersion,
			SectionCount:     len(sections),
		},
		Blocks: blocks,
	}
	fp, err := doc.ComputeFingerprint()
	if err != nil {
		return nil, nil, err
	}
	doc.Metadata.Fingerprint = fp
	return doc, misses, nil
}

func (a *Assembler) resolve(text string, vars variables.Dictionary, section, field string) (string, []variables.Miss) {
	out, misses := a.resolver.Resolve(text, vars)
	for i := range misses {
		misses[i].Section = section
		misses[i].Field = field
	}
	return out, misses
}

func (a *Assembler) headingBlock(rs resolvedSection, anchor toc.Ref) Block {
	text := rs.node.Number
	if rs.title != "" {
		text += " " + rs.title
	}
	return Block{
		Kind:       BlockHeading,
		Level:      rs.node.Level,
		Text:       text,
		Section:    rs.node.Number,
		Anchor:     anchor,
		Unresolved: a.unresolved(rs.title, rs.titleMisses),
	}
}

func (a *Assembler) contentBlocks(rs resolvedSection) []Block {
	lines := normalize.Normalize(rs.body)
	out := make([]Block, 0, len(lines))
	for _, l := range lines {
		b := Block{Section: rs.node.Number, Text: l.Text}
		switch l.Kind {
		case normalize.Heading:
			b.Kind = BlockHeading
			b.Level = min(rs.node.Level+l.Level, a.opts.MaxHeadingLevel)
		case normalize.ListItem:
			b.Kind = BlockListItem
		case normalize.Break:
			b.Kind = BlockBreak
		default:
			b.Kind = BlockParagraph
		}
		b.Unresolved = a.unresolved(l.Text, rs.bodyMisses)
		out = append(out, b)
	}
	return out
}

// unresolved lists, once each, the missed placeholder names that still appear
// in text. Bracketed text that arrived inside a substituted value has no miss
// and is not listed.
func (a *Assembler) unresolved(text string, misses []variables.Miss) []string {
	if len(misses) == 0 {
		return nil
	}
	missed := make(map[string]bool, len(misses))
	for _, m := range misses {
		missed[m.Name] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, name := range a.resolver.Placeholders(text) {
		if !missed[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
