package search

import (
	"path/filepath"
	"testing"
	"time"

	"manualgen/internal/assembler"
	"manualgen/internal/manual"
	"manualgen/internal/variables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDoc(t *testing.T, name string, sections ...manual.Section) *assembler.Document {
	t.Helper()
	doc, _, err := assembler.New(assembler.Options{
		Manual: name,
		Now:    func() time.Time { return time.Unix(0, 0).UTC() },
	}).Assemble(sections, variables.MustDictionary(map[string]string{"COMPANY_NAME": "Acme"}))
	require.NoError(t, err)
	return doc
}

func hrDoc(t *testing.T) *assembler.Document {
	return buildDoc(t, "hr",
		manual.NewSection("1", "Leave Policy", "Employees of [COMPANY NAME] accrue vacation monthly."),
		manual.NewSection("1.1", "Sick Leave", "- Notify your manager\n- Provide a certificate"),
		manual.NewSection("2", "Remote Work", "Remote days require approval."),
	)
}

func TestRecords(t *testing.T) {
	records := Records(hrDoc(t))
	require.Len(t, records, 3)
	assert.Equal(t, Record{Manual: "hr", Number: "1", Title: "Leave Policy", Text: "Employees of Acme accrue vacation monthly."}, records[0])
	assert.Equal(t, "Notify your manager\nProvide a certificate", records[1].Text)
}

func TestIndex_SearchFindsSections(t *testing.T) {
	idx, err := NewMemIndex()
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.IndexDocument(hrDoc(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := idx.Search("vacation", "", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, RecordID("hr", "1"), hits[0].ID)
	assert.Equal(t, "hr", hits[0].Manual)
	assert.Equal(t, "1", hits[0].Number)
	assert.Equal(t, "Leave Policy", hits[0].Title)
	assert.Positive(t, hits[0].Score)

	hits, err = idx.Search("certificate", "", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1.1", hits[0].Number)
}

func TestIndex_ReindexReplacesManual(t *testing.T) {
	idx, err := NewMemIndex()
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(hrDoc(t))
	require.NoError(t, err)
	_, err = idx.IndexDocument(buildDoc(t, "safety", manual.NewSection("1", "Fire Drills", "Evacuate calmly.")))
	require.NoError(t, err)

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)

	_, err = idx.IndexDocument(buildDoc(t, "hr", manual.NewSection("1", "Leave Policy", "Updated text.")))
	require.NoError(t, err)
	count, err = idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	hits, err := idx.Search("certificate", "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_SearchWithinManual(t *testing.T) {
	idx, err := NewMemIndex()
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(hrDoc(t))
	require.NoError(t, err)
	_, err = idx.IndexDocument(buildDoc(t, "safety", manual.NewSection("1", "Remote Hazards", "Remote sites need a buddy.")))
	require.NoError(t, err)

	hits, err := idx.Search("remote", "safety", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "safety", hits[0].Manual)

	hits, err = idx.Search("remote", "", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestOpen_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manuals.bleve")

	idx, err := Open(path)
	require.NoError(t, err)
	_, err = idx.IndexDocument(hrDoc(t))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	count, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
