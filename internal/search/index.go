// Package search keeps a full-text index of generated manuals, one record per section.
package search

import (
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"manualgen/internal/assembler"
)

const batchSize = 100

// Record is the indexed form of one section.
type Record struct {
	Manual string `json:"manual"`
	Number string `json:"number"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Hit is a search result.
type Hit struct {
	ID     string  `json:"id"`
	Manual string  `json:"manual"`
	Number string  `json:"number"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Index wraps a bleve index of section records.
type Index struct {
	index bleve.Index
}

// Open opens the index at path, creating it when it does not exist.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open index %s: %w", path, err)
		}
		return &Index{index: idx}, nil
	}
	idx, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index %s: %w", path, err)
	}
	return &Index{index: idx}, nil
}

// NewMemIndex returns an index that lives only in memory.
func NewMemIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

func newMapping() mapping.IndexMapping {
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	section := bleve.NewDocumentMapping()
	section.AddFieldMappingsAt("manual", exact)
	section.AddFieldMappingsAt("number", exact)
	section.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	section.AddFieldMappingsAt("text", bleve.NewTextFieldMapping())

	im := bleve.NewIndexMapping()
	im.DefaultMapping = section
	return im
}

// RecordID is the index key of a section.
func RecordID(manual, number string) string {
	return manual + "#" + number
}

// Records flattens doc into one record per section heading.
func Records(doc *assembler.Document) []Record {
	headings := doc.Headings()
	out := make([]Record, 0, len(headings))
	titles := map[string]string{}
	for _, e := range doc.TOC() {
		titles[e.Number] = e.Title
	}
	for _, h := range headings {
		var lines []string
		for _, b := range doc.SectionBlocks(h.Section) {
			if b.Text != "" {
				lines = append(lines, b.Text)
			}
		}
		out = append(out, Record{
			Manual: doc.Metadata.Manual,
			Number: h.Section,
			Title:  titles[h.Section],
			Text:   strings.Join(lines, "\n"),
		})
	}
	return out
}

// IndexDocument replaces every record of doc's manual with the sections of doc.
// It returns the number of records indexed.
func (i *Index) IndexDocument(doc *assembler.Document) (int, error) {
	manual := doc.Metadata.Manual
	stale, err := i.manualIDs(manual)
	if err != nil {
		return 0, err
	}

	batch := i.index.NewBatch()
	for _, id := range stale {
		batch.Delete(id)
	}
	records := Records(doc)
	for n, r := range records {
		if err := batch.Index(RecordID(r.Manual, r.Number), r); err != nil {
			return 0, fmt.Errorf("failed to add section %s to batch: %w", r.Number, err)
		}
		if batch.Size() >= batchSize && n < len(records)-1 {
			if err := i.index.Batch(batch); err != nil {
				return 0, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = i.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := i.index.Batch(batch); err != nil {
			return 0, fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	return len(records), nil
}

func (i *Index) manualIDs(manual string) ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	q := bleve.NewTermQuery(manual)
	q.SetField("manual")
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", manual, err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Search runs a match query over titles and text. A non-empty manual restricts
// results to that manual.
func (i *Index) Search(text, manual string, size int) ([]Hit, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	match := bleve.NewMatchQuery(text)
	var req *bleve.SearchRequest
	if manual != "" {
		only := bleve.NewTermQuery(manual)
		only.SetField("manual")
		req = bleve.NewSearchRequest(bleve.NewConjunctionQuery(match, only))
	} else {
		req = bleve.NewSearchRequest(match)
	}
	req.Size = size
	req.Fields = []string{"*"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["manual"].(string); ok {
			hit.Manual = v
		}
		if v, ok := h.Fields["number"].(string); ok {
			hit.Number = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (i *Index) DocCount() (uint64, error) {
	return i.index.DocCount()
}

func (i *Index) Close() error {
	return i.index.Close()
}
