package variables

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var unsetValuePattern = regexp.MustCompile(`^\s*[\[{][^\]}]*[\]}]\s*$`)

// LoadDictionary reads a variable file (.json, .yaml or .yml).
func LoadDictionary(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return Dictionary{}, fmt.Errorf("failed to parse variable file %s: %w", path, err)
	}

	d, err := FromRaw(raw)
	if err != nil {
		return Dictionary{}, fmt.Errorf("invalid variable file %s: %w", path, err)
	}
	return d, nil
}

// FromRaw builds a dictionary from decoded JSON/YAML. Three shapes are accepted:
//
//	{"COMPANY_NAME": "Acme"}
//	{"company_name": {"description": "...", "default_value": "Acme", "category": "organization"}}
//	{"variables": <either of the above>}
//
// Entries whose value is empty or still a bracketed placeholder are treated as unset.
func FromRaw(raw map[string]any) (Dictionary, error) {
	if inner, ok := raw["variables"].(map[string]any); ok && len(raw) == 1 {
		raw = inner
	}

	flat := make(map[string]string, len(raw))
	for name, v := range raw {
		value, err := entryValue(v)
		if err != nil {
			return Dictionary{}, fmt.Errorf("variable %q: %w", name, err)
		}
		if isUnset(value) {
			continue
		}
		flat[name] = value
	}
	return NewDictionary(flat)
}

func entryValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool, int, int64, float64:
		return fmt.Sprint(t), nil
	case map[string]any:
		for _, key := range []string{"value", "default_value"} {
			if inner, ok := t[key]; ok {
				return entryValue(inner)
			}
		}
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func isUnset(value string) bool {
	return strings.TrimSpace(value) == "" || unsetValuePattern.MatchString(value)
}
