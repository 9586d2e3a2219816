package custom

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
)

// Reinsert places content between markers right after the first anchor job
// found in text. When no anchor exists the section goes after the last job,
// or at the end of the document without a jobs mapping, and a warning is
// returned. Empty content still produces the two markers. The end marker is
// always followed by a blank line unless it closes the document.
func Reinsert(text, content string, anchors ...string) (string, []string) {
	lines := splitLines(strings.TrimRight(text, "\n"))
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}

	var warnings []string
	at, indent, found := anchorPosition(text, lines, anchors)
	if !found {
		warnings = append(warnings, fmt.Sprintf(
			"anchor job not found (tried %s); custom section appended after the last job",
			strings.Join(anchors, ", ")))
	}

	block := []string{"", StartMarker(indent)}
	if strings.TrimSpace(content) != "" {
		block = append(block, trimBlank(splitLines(indentTo(content, len(indent))))...)
	}
	block = append(block, EndMarker(indent))
	if at < len(lines) && !isBlank(lines[at]) {
		block = append(block, "")
	}

	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:at]...)
	out = append(out, block...)
	out = append(out, lines[at:]...)
	if at == 0 {
		out = trimBlank(out)
	}
	return strings.Join(out, "\n") + "\n", warnings
}

// anchorPosition finds the line index after the first anchor job's block,
// using the parsed tree for the key line and indentation for the block end.
// Without an anchor it falls back to the end of the last job block.
func anchorPosition(text string, lines []string, anchors []string) (int, string, bool) {
	doc, err := yamldoc.Parse([]byte(text))
	if err != nil || doc.Jobs() == nil {
		return len(lines), "  ", false
	}
	jobs := doc.Jobs()
	for _, anchor := range anchors {
		key := yamldoc.KeyNode(jobs, anchor)
		if key == nil || key.Line < 1 || key.Line > len(lines) {
			continue
		}
		i := key.Line - 1
		indent := leading(lines[i])
		return blockEnd(lines, i, len(indent)), indent, true
	}

	pairs := yamldoc.Pairs(jobs)
	if len(pairs) == 0 {
		jobsKey := yamldoc.KeyNode(doc.Root(), "jobs")
		if jobsKey == nil || jobsKey.Line < 1 || jobsKey.Line > len(lines) {
			return len(lines), "  ", false
		}
		i := jobsKey.Line - 1
		return blockEnd(lines, i, indentOf(lines[i])), leading(lines[i]) + "  ", false
	}
	last := pairs[len(pairs)-1].Key
	if last.Line < 1 || last.Line > len(lines) {
		return len(lines), "  ", false
	}
	i := last.Line - 1
	indent := leading(lines[i])
	return blockEnd(lines, i, len(indent)), indent, false
}

func leading(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " "))]
}
