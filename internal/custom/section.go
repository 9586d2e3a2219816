package custom

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

var keyLineRe = regexp.MustCompile(`^( *)([A-Za-z0-9_][A-Za-z0-9_.-]*|"[^"]*"|'[^']*')[ \t]*:(?:[ \t]|$)`)

// Extract returns the text between the first start marker and the last end
// marker, without surrounding blank lines. Marker lines nested inside are
// dropped. It returns false when the markers are missing, unbalanced or out
// of order.
func Extract(text string) (string, bool) {
	lines := splitLines(text)
	first, last, ok := span(lines)
	if !ok {
		return "", false
	}

	body := make([]string, 0, last-first)
	for _, line := range lines[first+1 : last] {
		if !IsMarker(line) {
			body = append(body, line)
		}
	}
	return strings.Join(trimBlank(body), "\n"), true
}

// span returns the line indexes of the first start marker and the last end
// marker.
func span(lines []string) (first, last int, ok bool) {
	var starts, ends []int
	for i, line := range lines {
		switch {
		case IsStartMarker(line):
			starts = append(starts, i)
		case IsEndMarker(line):
			ends = append(ends, i)
		}
	}
	if len(starts) == 0 || len(starts) != len(ends) {
		return 0, 0, false
	}
	first, last = starts[0], ends[len(ends)-1]
	if first > last {
		return 0, 0, false
	}
	return first, last, true
}

// Sanitize removes every top-level block whose key is managed, together
// with the comment lines directly above it, and collapses blank runs. It
// returns false when nothing but blank lines remains.
func Sanitize(section string, managed []string) (string, bool) {
	lines := splitLines(section)
	base := baseIndent(lines)
	isManaged := make(map[string]bool, len(managed))
	for _, name := range managed {
		isManaged[name] = true
	}

	drop := make([]bool, len(lines))
	for i := 0; i < len(lines); i++ {
		name, indent, ok := keyLine(lines[i])
		if !ok || indent != base || !isManaged[name] {
			continue
		}
		for j := i - 1; j >= 0 && isComment(lines[j]) && indentOf(lines[j]) <= base; j-- {
			drop[j] = true
		}
		drop[i] = true
		end := blockEnd(lines, i, base)
		for j := i + 1; j < end; j++ {
			drop[j] = true
		}
		i = end - 1
	}

	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if drop[i] {
			continue
		}
		if isBlank(line) && len(kept) > 0 && isBlank(kept[len(kept)-1]) {
			continue
		}
		kept = append(kept, line)
	}
	kept = trimBlank(kept)
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, "\n"), true
}

// SectionKeys lists the top-level keys of section in order.
func SectionKeys(section string) []string {
	lines := splitLines(section)
	base := baseIndent(lines)
	var keys []string
	for _, line := range lines {
		if name, indent, ok := keyLine(line); ok && indent == base {
			keys = append(keys, name)
		}
	}
	return keys
}

// SectionJobs parses section as the body of a jobs mapping. Sections that
// are not valid YAML yield a mapping of their key names with empty bodies.
func SectionJobs(section string) *yaml.Node {
	doc, err := yamldoc.Parse([]byte("jobs:\n" + indentTo(section, 2)))
	if err == nil && doc.Jobs() != nil {
		return doc.Jobs()
	}
	jobs := yamldoc.NewMapping()
	for _, name := range SectionKeys(section) {
		if yamldoc.Index(jobs, name) < 0 {
			yamldoc.Set(jobs, name, yamldoc.NewMapping())
		}
	}
	return jobs
}

// indentTo shifts section so its top-level keys sit at width spaces.
func indentTo(section string, width int) string {
	lines := splitLines(section)
	shift := width - baseIndent(lines)
	if shift == 0 {
		return section
	}
	for i, line := range lines {
		if isBlank(line) {
			continue
		}
		if shift > 0 {
			lines[i] = strings.Repeat(" ", shift) + line
			continue
		}
		lead := len(line) - len(strings.TrimLeft(line, " "))
		lines[i] = line[min(-shift, lead):]
	}
	return strings.Join(lines, "\n")
}

func keyLine(line string) (name string, indent int, ok bool) {
	m := keyLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	name = m[2]
	if strings.HasPrefix(name, `"`) {
		if unq, err := strconv.Unquote(name); err == nil {
			name = unq
		}
	} else if strings.HasPrefix(name, "'") {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name, len(m[1]), true
}

// baseIndent is the smallest indentation of any key line.
func baseIndent(lines []string) int {
	base := -1
	for _, line := range lines {
		if _, indent, ok := keyLine(line); ok && (base < 0 || indent < base) {
			base = indent
		}
	}
	if base < 0 {
		return 0
	}
	return base
}

// blockEnd returns the index just past the block starting at key line i:
// every following line that is blank or indented deeper than base.
// Trailing blank lines are left outside the block.
func blockEnd(lines []string, i, base int) int {
	end := i + 1
	for end < len(lines) && (isBlank(lines[end]) || indentOf(lines[end]) > base) {
		end++
	}
	for end > i+1 && isBlank(lines[end-1]) {
		end--
	}
	return end
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
