package normalize

import (
	"regexp"
	"strings"
)

var (
	linkPattern       = regexp.MustCompile(`\[([^\[\]]+)\]\(([^()\s]+)\)`)
	codePattern       = regexp.MustCompile("`([^`]+)`")
	strongStarPattern = regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*`)
	strongBarPattern  = regexp.MustCompile(`__(\S(?:.*?\S)?)__`)
	strikePattern     = regexp.MustCompile(`~~(\S(?:.*?\S)?)~~`)
	// Single markers only count at word edges so "2*3*4" and snake_case survive.
	emStarPattern = regexp.MustCompile(`(^|[^\w*])\*([^*\s](?:[^*]*[^*\s])?)\*($|[^\w*])`)
	emBarPattern  = regexp.MustCompile(`(^|[^\w_])_([^_\s](?:[^_]*[^_\s])?)_($|[^\w_])`)
	strayPattern  = regexp.MustCompile(`\*\*+|__+|~~+`)
	spacePattern  = regexp.MustCompile(`\s{2,}`)
)

// StripInline removes emphasis, code and link markup from a single line of text.
func StripInline(text string) string {
	s := linkPattern.ReplaceAllString(text, "$1 ($2)")
	s = codePattern.ReplaceAllString(s, "$1")
	s = strongStarPattern.ReplaceAllString(s, "$1")
	s = strongBarPattern.ReplaceAllString(s, "$1")
	s = strikePattern.ReplaceAllString(s, "$1")
	s = replaceUntilStable(emStarPattern, s, "${1}${2}${3}")
	s = replaceUntilStable(emBarPattern, s, "${1}${2}${3}")
	s = strayPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Adjacent matches share their boundary character, so one pass can miss every other span.
func replaceUntilStable(re *regexp.Regexp, s, repl string) string {
	for i := 0; i < 8; i++ {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return next
		}
		s = next
	}
	return s
}
