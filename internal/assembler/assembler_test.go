package assembler

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"manualgen/internal/manual"
	"manualgen/internal/outline"
	"manualgen/internal/toc"
	"manualgen/internal/variables"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleSections() []manual.Section {
	return []manual.Section{
		manual.NewSection("1", "Introduction", "Welcome to [COMPANY NAME].\n\n- Scope\n- * Nested"),
		manual.NewSection("1.1", "**Purpose**", "This policy is owned by [POLICY OWNER]."),
		manual.NewSection("2", "Conduct at [COMPANY_NAME]", "## Expectations\nBe kind."),
		manual.NewSection("2.1", "Reporting", ""),
		manual.NewSection("2.1.1", "Hotline", "Call [HOTLINE]."),
		manual.NewSection("2.1.1.1", "After Hours", "Leave a message."),
	}
}

func sampleVars() variables.Dictionary {
	return variables.MustDictionary(map[string]string{
		"COMPANY_NAME": "Acme Corp",
		"POLICY_OWNER": "HR Director",
	})
}

func TestAssemble_BuildsTOCFirst(t *testing.T) {
	doc, _, err := New(Options{Manual: "hr", Now: fixedNow(time.Unix(0, 0))}).Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	require.NotEmpty(t, doc.Blocks)
	assert.Equal(t, BlockTOC, doc.Blocks[0].Kind)

	entries := doc.TOC()
	require.Len(t, entries, 6)
	assert.Equal(t, toc.Entry{Number: "1", Title: "Introduction", IndentLevel: 0, TargetRef: "section-1"}, entries[0])
	assert.Equal(t, "Purpose", entries[1].Title)
	assert.Equal(t, "Conduct at Acme Corp", entries[2].Title)
	assert.Equal(t, 3, entries[5].IndentLevel)
	assert.Equal(t, toc.Ref("section-2-1-1-1"), entries[5].TargetRef)
}

func TestAssemble_HeadingsSaturateAtMaxLevel(t *testing.T) {
	doc, _, err := Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)

	headings := doc.Headings()
	require.Len(t, headings, 6)
	var levels []int
	var texts []string
	for _, h := range headings {
		levels = append(levels, h.Level)
		texts = append(texts, h.Text)
	}
	assert.Equal(t, []int{1, 2, 1, 2, 3, 3}, levels)
	assert.Equal(t, "1 Introduction", texts[0])
	assert.Equal(t, "2 Conduct at Acme Corp", texts[2])
	assert.Equal(t, "2.1.1.1 After Hours", texts[5])
}

func TestAssemble_ContentBlocksAreClassified(t *testing.T) {
	doc, _, err := Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)

	intro := doc.SectionBlocks("1")
	want := []Block{
		{Kind: BlockParagraph, Text: "Welcome to Acme Corp.", Section: "1"},
		{Kind: BlockBreak, Section: "1"},
		{Kind: BlockListItem, Text: "Scope", Section: "1"},
		{Kind: BlockListItem, Text: "Nested", Section: "1"},
	}
	assert.Empty(t, cmp.Diff(want, intro))

	conduct := doc.SectionBlocks("2")
	require.Len(t, conduct, 2)
	assert.Equal(t, BlockHeading, conduct[0].Kind)
	assert.Equal(t, 3, conduct[0].Level)
	assert.Equal(t, "Expectations", conduct[0].Text)
	assert.Empty(t, conduct[0].Anchor)

	assert.Empty(t, doc.SectionBlocks("2.1"))
}

func TestAssemble_NoBulletMarkersLeak(t *testing.T) {
	sections := []manual.Section{manual.NewSection("1", "Lists", "- a\n* b\n• c\n1. d\n- • e\n-  - f")}
	doc, _, err := Assemble(sections, variables.Dictionary{})
	require.NoError(t, err)

	blocks := doc.SectionBlocks("1")
	require.Len(t, blocks, 6)
	for i, want := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, BlockListItem, blocks[i].Kind)
		assert.Equal(t, want, blocks[i].Text)
	}
}

func TestAssemble_ReportsMissesWithLocation(t *testing.T) {
	doc, misses, err := New(Options{Subject: "[COMPANY NAME] [DEPARTMENT] Handbook"}).Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp [DEPARTMENT] Handbook", doc.Metadata.Subject)
	want := []variables.Miss{
		{Name: "DEPARTMENT", Token: "[DEPARTMENT]", Field: FieldSubject},
		{Name: "HOTLINE", Token: "[HOTLINE]", Section: "2.1.1", Field: FieldBody},
	}
	assert.Equal(t, want, misses)

	hotline := doc.SectionBlocks("2.1.1")
	require.Len(t, hotline, 1)
	assert.Equal(t, "Call [HOTLINE].", hotline[0].Text)
	assert.Equal(t, []string{"HOTLINE"}, hotline[0].Unresolved)
}

func TestAssemble_BracketsInsideValuesAreNotUnresolved(t *testing.T) {
	vars := variables.MustDictionary(map[string]string{"COMPANY_NAME": "Acme [Legal]"})
	sections := []manual.Section{
		manual.NewSection("1", "[COMPANY NAME] Rules", "Welcome to [COMPANY NAME]. Call [HOTLINE]."),
		manual.NewSection("2", "Entities", "Owned by [COMPANY NAME]."),
	}
	doc, misses, err := Assemble(sections, vars)
	require.NoError(t, err)

	require.Len(t, misses, 1)
	assert.Equal(t, "HOTLINE", misses[0].Name)

	headings := doc.Headings()
	require.Len(t, headings, 2)
	assert.Equal(t, "1 Acme [Legal] Rules", headings[0].Text)
	assert.Empty(t, headings[0].Unresolved)

	intro := doc.SectionBlocks("1")
	require.Len(t, intro, 1)
	assert.Equal(t, "Welcome to Acme [Legal]. Call [HOTLINE].", intro[0].Text)
	assert.Equal(t, []string{"HOTLINE"}, intro[0].Unresolved)

	owned := doc.SectionBlocks("2")
	require.Len(t, owned, 1)
	assert.Equal(t, "Owned by Acme [Legal].", owned[0].Text)
	assert.Empty(t, owned[0].Unresolved)
}

func TestAssemble_OutlineErrorsReturnNoDocument(t *testing.T) {
	broken := []manual.Section{
		manual.NewSection("1", "A", ""),
		manual.NewSection("1.1", "B", ""),
		manual.NewSection("1.2", "C", ""),
		manual.NewSection("2", "D", ""),
		manual.NewSection("3.1", "E", ""),
	}
	doc, misses, err := Assemble(broken, sampleVars())
	require.Error(t, err)
	assert.True(t, errors.Is(err, outline.ErrBrokenOutline))
	assert.Nil(t, doc)
	assert.Nil(t, misses)

	invalid := []manual.Section{manual.NewSection("1.a", "A", "")}
	doc, _, err = Assemble(invalid, sampleVars())
	require.Error(t, err)
	assert.True(t, errors.Is(err, outline.ErrInvalidSectionNumber))
	assert.Nil(t, doc)
}

func TestAssemble_DeterministicAcrossClocks(t *testing.T) {
	first, _, err := New(Options{Now: fixedNow(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))}).Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)
	second, _, err := New(Options{Now: fixedNow(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))}).Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first.Blocks, second.Blocks))
	assert.Equal(t, first.Metadata.Fingerprint, second.Metadata.Fingerprint)
	assert.Contains(t, first.Metadata.Fingerprint, "blake3:")
	assert.NotEqual(t, first.Metadata.GeneratedAt, second.Metadata.GeneratedAt)

	other, _, err := Assemble(sampleSections()[:2], sampleVars())
	require.NoError(t, err)
	assert.NotEqual(t, first.Metadata.Fingerprint, other.Metadata.Fingerprint)
}

func TestAssemble_DoesNotMutateInputs(t *testing.T) {
	sections := sampleSections()
	before := append([]manual.Section(nil), sections...)
	vars := sampleVars()

	_, _, err := Assemble(sections, vars)
	require.NoError(t, err)
	assert.Equal(t, before, sections)
	assert.Equal(t, 2, vars.Len())
}

func TestAssemble_EmptyOutline(t *testing.T) {
	doc, misses, err := Assemble(nil, variables.Dictionary{})
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, BlockTOC, doc.Blocks[0].Kind)
	assert.Empty(t, doc.TOC())
	assert.Empty(t, misses)
	assert.Equal(t, DefaultTitle, doc.Metadata.Title)
	assert.NoError(t, doc.Validate())
}

func TestSaveAndLoadDocument(t *testing.T) {
	doc, _, err := New(Options{Manual: "hr", Now: fixedNow(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))}).Assemble(sampleSections(), sampleVars())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "hr.json")
	require.NoError(t, SaveDocument(path, doc))

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	assert.Empty(t, cmp.Diff(doc, loaded))

	fp, err := loaded.ComputeFingerprint()
	require.NoError(t, err)
	assert.Equal(t, doc.Metadata.Fingerprint, fp)
}

func TestDocumentValidate_RejectsBrokenShapes(t *testing.T) {
	assert.Error(t, (*Document)(nil).Validate())
	assert.Error(t, (&Document{SchemaVersion: "v1"}).Validate())

	dangling := &Document{SchemaVersion: "v1", Blocks: []Block{
		{Kind: BlockTOC, Entries: []toc.Entry{{Number: "1", TargetRef: "section-1"}}},
	}}
	assert.Error(t, dangling.Validate())

	dup := &Document{SchemaVersion: "v1", Blocks: []Block{
		{Kind: BlockTOC},
		{Kind: BlockHeading, Level: 1, Anchor: "section-1"},
		{Kind: BlockHeading, Level: 1, Anchor: "section-1"},
	}}
	assert.Error(t, dup.Validate())

	unknown := &Document{SchemaVersion: "v1", Blocks: []Block{{Kind: BlockTOC}, {Kind: "table"}}}
	assert.Error(t, unknown.Validate())
}
