package variables

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Dictionary maps canonical placeholder names to resolved values.
// It is immutable once built; use Merge to derive a new one.
type Dictionary struct {
	values map[string]string
}

// NewDictionary validates raw names and returns a dictionary keyed by canonical name.
func NewDictionary(raw map[string]string) (Dictionary, error) {
	values := make(map[string]string, len(raw))
	origin := make(map[string]string, len(raw))

	// Sorted so that collision errors are reported the same way on every run.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := NormalizeName(name)
		if key == "" {
			return Dictionary{}, fmt.Errorf("variable name %q is empty", name)
		}
		if prev, ok := origin[key]; ok {
			return Dictionary{}, fmt.Errorf("variable names %q and %q both normalize to %s", prev, name, key)
		}
		origin[key] = name
		values[key] = raw[name]
	}
	return Dictionary{values: values}, nil
}

// MustDictionary is NewDictionary for literals known to be valid.
func MustDictionary(raw map[string]string) Dictionary {
	d, err := NewDictionary(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Lookup returns the value for an already canonical name.
func (d Dictionary) Lookup(name string) (string, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Len returns the number of variables.
func (d Dictionary) Len() int {
	return len(d.values)
}

// Names returns the canonical names in sorted order.
func (d Dictionary) Names() []string {
	out := make([]string, 0, len(d.values))
	for k := range d.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the underlying values.
func (d Dictionary) Map() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Merge returns a new dictionary holding base overlaid by each override in turn.
func Merge(base Dictionary, overrides ...Dictionary) Dictionary {
	values := base.Map()
	for _, o := range overrides {
		for k, v := range o.values {
			values[k] = v
		}
	}
	return Dictionary{values: values}
}

// NormalizeName trims, uppercases and folds inner whitespace runs to "_",
// so "[Company Name]" and "[COMPANY_NAME]" address the same variable.
func NormalizeName(name string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(name), unicode.IsSpace)
	return strings.ToUpper(strings.Join(fields, "_"))
}
