package yamldoc

import (
	"errors"
	"strings"
)

// ErrInvalidPath is returned for empty paths or paths with empty segments.
var ErrInvalidPath = errors.New("invalid path")

// ParsePath splits a dotted path into segments. A literal dot inside a key
// is written as `\.`.
func ParsePath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	var (
		segments []string
		current  strings.Builder
	)
	for i := 0; i < len(path); i++ {
		switch {
		case path[i] == '\\' && i+1 < len(path) && path[i+1] == '.':
			current.WriteByte('.')
			i++
		case path[i] == '.':
			if current.Len() == 0 {
				return nil, ErrInvalidPath
			}
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(path[i])
		}
	}
	if current.Len() == 0 {
		return nil, ErrInvalidPath
	}
	return append(segments, current.String()), nil
}

// JoinPath is the inverse of ParsePath.
func JoinPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = strings.ReplaceAll(s, ".", `\.`)
	}
	return strings.Join(escaped, ".")
}
