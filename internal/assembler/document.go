package assembler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"manualgen/internal/toc"

	"github.com/zeebo/blake3"
)

const documentSchemaVersion = "v1"

// GeneratorVersion is stamped into every document's metadata.
const GeneratorVersion = "manualgen-1.0"

// BlockKind identifies a rendering block.
type BlockKind string

const (
	BlockTOC       BlockKind = "toc"
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockBreak     BlockKind = "break"
)

// Block is one unit handed to a renderer.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Level   int       `json:"level,omitempty"`
	Text    string    `json:"text,omitempty"`
	Section string    `json:"section,omitempty"`
	Anchor  toc.Ref   `json:"anchor,omitempty"`
	// Entries is set on the TOC block only.
	Entries []toc.Entry `json:"entries,omitempty"`
	// Unresolved lists placeholder names still present in Text.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Metadata describes a generated document.
type Metadata struct {
	Manual           string    `json:"manual"`
	Title            string    `json:"title"`
	Subject          string    `json:"subject,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
	GeneratorVersion string    `json:"generator_version"`
	SectionCount     int       `json:"section_count"`
	Fingerprint      string    `json:"fingerprint"`
}

// Document is the engine's output artifact.
type Document struct {
	SchemaVersion string   `json:"schema_version"`
	Metadata      Metadata `json:"metadata"`
	Blocks        []Block  `json:"blocks"`
}

// TOC returns the table-of-contents entries, or nil when the document has none.
func (d *Document) TOC() []toc.Entry {
	for _, b := range d.Blocks {
		if b.Kind == BlockTOC {
			return b.Entries
		}
	}
	return nil
}

// Headings returns the section heading blocks in order.
func (d *Document) Headings() []Block {
	var out []Block
	for _, b := range d.Blocks {
		if b.Kind == BlockHeading && b.Anchor != "" {
			out = append(out, b)
		}
	}
	return out
}

// SectionBlocks returns the content blocks (heading excluded) of the section with number.
func (d *Document) SectionBlocks(number string) []Block {
	var out []Block
	for _, b := range d.Blocks {
		if b.Section == number && b.Anchor == "" && b.Kind != BlockTOC {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks the structural shape of a document, e.g. one loaded from storage.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	if d.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	if len(d.Blocks) == 0 || d.Blocks[0].Kind != BlockTOC {
		return fmt.Errorf("document must start with a toc block")
	}
	anchors := make(map[toc.Ref]bool, len(d.Blocks))
	for i, b := range d.Blocks {
		switch b.Kind {
		case BlockTOC:
			if i != 0 {
				return fmt.Errorf("toc block at position %d", i)
			}
		case BlockHeading:
			if b.Level < 1 {
				return fmt.Errorf("heading at position %d has level %d", i, b.Level)
			}
			if b.Anchor != "" {
				if anchors[b.Anchor] {
					return fmt.Errorf("duplicate anchor: %s", b.Anchor)
				}
				anchors[b.Anchor] = true
			}
		case BlockParagraph, BlockListItem, BlockBreak:
		default:
			return fmt.Errorf("unknown block kind %q at position %d", b.Kind, i)
		}
	}
	for _, e := range d.Blocks[0].Entries {
		if !anchors[e.TargetRef] {
			return fmt.Errorf("toc entry %s targets missing anchor %s", e.Number, e.TargetRef)
		}
	}
	return nil
}

// ComputeFingerprint hashes everything except the generation timestamp and the
// fingerprint itself, so equal inputs give equal fingerprints.
func (d *Document) ComputeFingerprint() (string, error) {
	meta := d.Metadata
	meta.GeneratedAt = time.Time{}
	meta.Fingerprint = ""
	canonical := Document{SchemaVersion: d.SchemaVersion, Metadata: meta, Blocks: d.Blocks}
	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document for fingerprint: %w", err)
	}
	sum := blake3.Sum256(raw)
	return "blake3:" + hex.EncodeToString(sum[:]), nil
}

// LoadDocument reads a document written by SaveDocument.
func LoadDocument(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveDocument validates and writes the document as indented JSON.
func SaveDocument(path string, d *Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0644)
}
