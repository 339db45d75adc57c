package render

import (
	"encoding/json"
	"fmt"

	"manualgen/internal/assembler"
)

// JSON writes the document model itself as indented JSON.
func JSON(doc *assembler.Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return append(b, '\n'), nil
}
