package outline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxHeadingLevel is the deepest heading level handed to renderers.
const MaxHeadingLevel = 3

const delimiter = "."

var (
	// ErrInvalidSectionNumber indicates a section number that cannot be parsed.
	ErrInvalidSectionNumber = errors.New("invalid section number")
	// ErrBrokenOutline indicates a depth discontinuity in the section sequence.
	ErrBrokenOutline = errors.New("broken outline")
)

// NumberError describes why a section number was rejected.
type NumberError struct {
	Number string
	Reason string
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("invalid section number %q: %s", e.Number, e.Reason)
}

func (e *NumberError) Unwrap() error {
	return ErrInvalidSectionNumber
}

// Path is the numeric component path of a section number, e.g. [2 3 1] for "2.3.1".
type Path []int

// Depth returns the number of components.
func (p Path) Depth() int {
	return len(p)
}

// Parent returns the path one level up, or nil for a top-level path.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1]
}

// String renders the canonical dotted form ("02.1" parses to "2.1").
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, delimiter)
}

// ParseDepth splits a dotted section number into its depth and component path.
func ParseDepth(number string) (int, Path, error) {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return 0, nil, &NumberError{Number: number, Reason: "empty"}
	}

	parts := strings.Split(trimmed, delimiter)
	path := make(Path, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return 0, nil, &NumberError{Number: number, Reason: fmt.Sprintf("component %d is empty", i+1)}
		}
		n, err := strconv.Atoi(part)
		if err != nil || strings.ContainsAny(part, "+-") {
			return 0, nil, &NumberError{Number: number, Reason: fmt.Sprintf("component %q is not numeric", part)}
		}
		if n <= 0 {
			return 0, nil, &NumberError{Number: number, Reason: fmt.Sprintf("component %q is not positive", part)}
		}
		path = append(path, n)
	}
	return len(path), path, nil
}

// HeadingLevel saturates a depth at maxLevel. A non-positive maxLevel means MaxHeadingLevel.
func HeadingLevel(depth, maxLevel int) int {
	if maxLevel <= 0 {
		maxLevel = MaxHeadingLevel
	}
	if depth < 1 {
		return 1
	}
	if depth > maxLevel {
		return maxLevel
	}
	return depth
}
