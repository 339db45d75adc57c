package outline

import "fmt"

// ContinuityError reports the first section that breaks the outline.
type ContinuityError struct {
	Index  int
	Number string
	Reason string
}

func (e *ContinuityError) Error() string {
	return fmt.Sprintf("broken outline at section %q (position %d): %s", e.Number, e.Index+1, e.Reason)
}

func (e *ContinuityError) Unwrap() error {
	return ErrBrokenOutline
}

// Node is one validated position in the outline.
type Node struct {
	Number string
	Path   Path
	Depth  int
	Level  int
}

// Resolve parses every number in supplied order and checks outline continuity.
// The input order is never changed. maxLevel caps Node.Level (see HeadingLevel).
func Resolve(numbers []string, maxLevel int) ([]Node, error) {
	nodes := make([]Node, 0, len(numbers))
	seen := make(map[string]bool, len(numbers))
	prevDepth := 0

	for i, raw := range numbers {
		depth, path, err := ParseDepth(raw)
		if err != nil {
			return nil, err
		}
		key := path.String()

		if seen[key] {
			return nil, &ContinuityError{Index: i, Number: raw, Reason: "duplicate section number"}
		}
		if depth > prevDepth+1 {
			return nil, &ContinuityError{
				Index:  i,
				Number: raw,
				Reason: fmt.Sprintf("depth %d follows depth %d", depth, prevDepth),
			}
		}
		if parent := path.Parent(); parent != nil && !seen[parent.String()] {
			return nil, &ContinuityError{
				Index:  i,
				Number: raw,
				Reason: fmt.Sprintf("parent section %q does not precede it", parent.String()),
			}
		}

		seen[key] = true
		prevDepth = depth
		nodes = append(nodes, Node{
			Number: key,
			Path:   path,
			Depth:  depth,
			Level:  HeadingLevel(depth, maxLevel),
		})
	}
	return nodes, nil
}

// ValidateContinuity reports whether numbers form a continuous outline.
func ValidateContinuity(numbers []string) error {
	_, err := Resolve(numbers, MaxHeadingLevel)
	return err
}
