package manual

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidManifest indicates content that does not match the manifest schema.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

const manifestSchemaURL = "manifest.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Manifest is the ordered section list of one manual plus its descriptive fields.
type Manifest struct {
	Name          string
	Description   string
	GeneratedDate string
	Sections      []Section
	// Variables holds inline variables exactly as decoded; nil when absent.
	Variables map[string]any
}

// Stats summarizes a manifest.
type Stats struct {
	TotalSections int         `json:"total_sections"`
	TotalWords    int         `json:"total_words"`
	ByDepth       map[int]int `json:"by_depth"`
}

type rawSection struct {
	Number  *string `json:"number"`
	Title   *string `json:"title"`
	Body    *string `json:"body"`
	Content *string `json:"content"`
}

type rawManifest struct {
	ManualDescription *string         `json:"manual_description"`
	GeneratedDate     *string         `json:"generated_date"`
	Variables         map[string]any  `json:"variables"`
	Sections          json.RawMessage `json:"sections"`
}

// LoadManifest reads and validates a manifest file. The manifest name is
// derived from the file name ("content_hr_handbook.json" -> "hr_handbook").
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", path, err)
	}
	m.Name = NameFromPath(path)
	return m, nil
}

// ParseManifest validates data against the manifest schema and decodes it.
// Accepted shapes are a bare section array, or an object with a "sections"
// array or an object of sections keyed by number (key order is preserved).
func ParseManifest(data []byte) (*Manifest, error) {
	if err := validateManifest(data); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		sections, err := decodeSectionList(trimmed)
		if err != nil {
			return nil, err
		}
		return &Manifest{Sections: sections}, nil
	}

	var raw rawManifest
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	m := &Manifest{
		Description:   deref(raw.ManualDescription),
		GeneratedDate: deref(raw.GeneratedDate),
		Variables:     raw.Variables,
	}

	sectionsJSON := bytes.TrimSpace(raw.Sections)
	var err error
	if len(sectionsJSON) > 0 && sectionsJSON[0] == '{' {
		m.Sections, err = decodeKeyedSections(sectionsJSON)
	} else {
		m.Sections, err = decodeSectionList(sectionsJSON)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Statistics counts sections, words and sections per depth.
func (m *Manifest) Statistics() Stats {
	st := Stats{ByDepth: map[int]int{}}
	for _, s := range m.Sections {
		st.TotalSections++
		st.TotalWords += len(strings.Fields(s.Body))
		st.ByDepth[strings.Count(s.Number, ".")+1]++
	}
	return st
}

// NameFromPath strips the directory, extension, "content_" prefix and "_data" suffix.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimPrefix(base, "content_")
	base = strings.TrimSuffix(base, "_data")
	if base == "" {
		return "manual"
	}
	return base
}

func decodeSectionList(data []byte) ([]Section, error) {
	var raws []rawSection
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	out := make([]Section, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.section(""))
	}
	return out, nil
}

func decodeKeyedSections(data []byte) ([]Section, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var out []Section
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		key, _ := tok.(string)
		var r rawSection
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("%w: section %q: %v", ErrInvalidManifest, key, err)
		}
		out = append(out, r.section(key))
	}
	return out, nil
}

func (r rawSection) section(fallbackNumber string) Section {
	number := deref(r.Number)
	if number == "" {
		number = fallbackNumber
	}
	title := deref(r.Title)
	if title == "" && r.Title == nil {
		title = number
	}
	body := deref(r.Body)
	if body == "" {
		body = deref(r.Content)
	}
	return NewSection(number, title, body)
}

func validateManifest(data []byte) error {
	schema, err := manifestSchema()
	if err != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: schema validation failed: %v", ErrInvalidManifest, err)
	}
	return nil
}

func manifestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(manifestSchemaURL, bytes.NewReader(manifestSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(manifestSchemaURL)
	})
	return compiledSchema, schemaErr
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
