package variables

import (
	"regexp"
	"strings"
)

// Style selects the placeholder bracket convention.
type Style string

const (
	// Square placeholders look like [COMPANY_NAME].
	Square Style = "square"
	// Curly placeholders look like {COMPANY_NAME}.
	Curly Style = "curly"
)

var stylePatterns = map[Style]*regexp.Regexp{
	Square: regexp.MustCompile(`\[[ \t]*([A-Za-z][A-Za-z0-9_ \t.\-]*)\]`),
	Curly:  regexp.MustCompile(`\{[ \t]*([A-Za-z][A-Za-z0-9_ \t.\-]*)\}`),
}

// Miss records a placeholder with no dictionary entry.
// Section and Field are filled in by callers that know where the text came from.
type Miss struct {
	Name    string `json:"name"`
	Token   string `json:"token"`
	Section string `json:"section,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Resolver substitutes placeholders in a single pass.
type Resolver struct {
	style   Style
	pattern *regexp.Regexp
}

// NewResolver returns a resolver for style; unknown styles fall back to Square.
func NewResolver(style Style) *Resolver {
	p, ok := stylePatterns[style]
	if !ok {
		style = Square
		p = stylePatterns[Square]
	}
	return &Resolver{style: style, pattern: p}
}

// Style reports the bracket convention in use.
func (r *Resolver) Style() Style {
	return r.style
}

var defaultResolver = NewResolver(Square)

// Resolve substitutes [NAME] placeholders using vars.
func Resolve(text string, vars Dictionary) (string, []Miss) {
	return defaultResolver.Resolve(text, vars)
}

// Resolve substitutes every placeholder found in text. Substituted values are
// never scanned again. Unknown placeholders stay in place and are returned as misses.
func (r *Resolver) Resolve(text string, vars Dictionary) (string, []Miss) {
	locs := r.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	var misses []Miss
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		token := text[start:end]
		b.WriteString(text[last:start])
		last = end

		// [label](url) is a markdown link, not a placeholder.
		if r.style == Square && end < len(text) && text[end] == '(' {
			b.WriteString(token)
			continue
		}

		name := NormalizeName(text[loc[2]:loc[3]])
		if value, ok := vars.Lookup(name); ok {
			b.WriteString(value)
			continue
		}
		b.WriteString(token)
		misses = append(misses, Miss{Name: name, Token: token})
	}
	b.WriteString(text[last:])
	return b.String(), misses
}

// Placeholders lists the canonical names referenced by text, in order of appearance.
func (r *Resolver) Placeholders(text string) []string {
	var out []string
	for _, m := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
		if r.style == Square && m[1] < len(text) && text[m[1]] == '(' {
			continue
		}
		out = append(out, NormalizeName(text[m[2]:m[3]]))
	}
	return out
}
