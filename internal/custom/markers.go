// Package custom round-trips user-authored jobs through regeneration.
//
// Users keep hand-written jobs between two comment markers in the jobs
// mapping. On every pass the text between the markers is lifted out of the
// previous output, cleaned of any key the generator owns, and written back
// verbatim after an anchor job. Unmanaged jobs found outside the markers
// are carried along too, and end up inside the markers from then on.
package custom

import (
	"regexp"
	"strings"
)

const (
	// StartToken opens the custom section.
	StartToken = "<--START CUSTOM JOBS-->"
	// EndToken closes the custom section.
	EndToken = "<--END CUSTOM JOBS-->"
)

var (
	startRe = markerPattern(StartToken)
	endRe   = markerPattern(EndToken)
)

// markerPattern matches a whole line holding any prefix, one or more "#",
// optional blanks and the token.
func markerPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`^[^\n]*?#+[ \t]*` + regexp.QuoteMeta(token) + `[ \t]*$`)
}

// IsStartMarker reports whether line is a start marker line.
func IsStartMarker(line string) bool {
	return startRe.MatchString(strings.TrimRight(line, "\r"))
}

// IsEndMarker reports whether line is an end marker line.
func IsEndMarker(line string) bool {
	return endRe.MatchString(strings.TrimRight(line, "\r"))
}

// IsMarker reports whether line is either marker.
func IsMarker(line string) bool {
	return IsStartMarker(line) || IsEndMarker(line)
}

// StartMarker renders the start marker at indent.
func StartMarker(indent string) string {
	return indent + "# " + StartToken
}

// EndMarker renders the end marker at indent.
func EndMarker(indent string) string {
	return indent + "# " + EndToken
}
