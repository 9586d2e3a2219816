package yamldoc

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// blankMarker is stored as the first head comment line of a node that is
// preceded by an empty line. Encode replaces it with the empty line itself.
const blankMarker = "#pipeforge:blank"

// CommentBefore returns the head comment of n. Lines keep their leading "#".
func CommentBefore(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	_, comment := splitHead(n.HeadComment)
	return comment
}

// SetCommentBefore replaces the head comment of n. Lines lacking a leading
// "#" get one. The blank line flag is kept.
func SetCommentBefore(n *yaml.Node, text string) {
	space, _ := splitHead(n.HeadComment)
	n.HeadComment = joinHead(space, normalizeComment(text))
}

// SpaceBefore reports whether n is rendered after an empty line.
func SpaceBefore(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	space, _ := splitHead(n.HeadComment)
	return space
}

// SetSpaceBefore sets or clears the empty line before n.
func SetSpaceBefore(n *yaml.Node, space bool) {
	_, comment := splitHead(n.HeadComment)
	n.HeadComment = joinHead(space, comment)
}

func splitHead(head string) (bool, string) {
	if head == blankMarker {
		return true, ""
	}
	if rest, ok := strings.CutPrefix(head, blankMarker+"\n"); ok {
		return true, rest
	}
	return false, head
}

func joinHead(space bool, comment string) string {
	switch {
	case space && comment != "":
		return blankMarker + "\n" + comment
	case space:
		return blankMarker
	default:
		return comment
	}
}

func normalizeComment(text string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			lines[i] = "#"
		case strings.HasPrefix(trimmed, "#"):
			lines[i] = trimmed
		default:
			lines[i] = "# " + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

// FilterComments removes every comment line for which drop returns true
// from n and its descendants. Blank line flags are kept.
func FilterComments(n *yaml.Node, drop func(line string) bool) {
	if n == nil {
		return
	}
	space, head := splitHead(n.HeadComment)
	n.HeadComment = joinHead(space, filterLines(head, drop))
	n.LineComment = filterLines(n.LineComment, drop)
	n.FootComment = filterLines(n.FootComment, drop)
	for _, c := range n.Content {
		FilterComments(c, drop)
	}
}

func filterLines(text string, drop func(string) bool) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !drop(line) {
			kept = append(kept, line)
		}
	}
	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, "\n")
}
