package yamldoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a parsed document root is not a mapping.
var ErrNotMapping = errors.New("document root is not a mapping")

// Document is one parsed or freshly created pipeline definition.
type Document struct {
	node *yaml.Node
}

// New returns an empty document.
func New() *Document {
	return &Document{node: &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{NewMapping()},
	}}
}

// Parse decodes data into a Document. Empty input yields an empty document.
// Blank lines preceding mapping keys are recorded so Encode reproduces them.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		doc := New()
		doc.node.HeadComment = root.HeadComment
		return doc, nil
	}
	if root.Kind != yaml.DocumentNode || root.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	markBlankLines(root.Content[0], strings.Split(string(data), "\n"), true)
	return &Document{node: &root}, nil
}

// Root returns the top-level mapping.
func (d *Document) Root() *yaml.Node {
	return d.node.Content[0]
}

// Node returns the underlying document node.
func (d *Document) Node() *yaml.Node {
	return d.node
}

// Clone returns a deep copy that shares no nodes with d.
func (d *Document) Clone() *Document {
	return &Document{node: Clone(d.node)}
}

// Jobs returns the jobs mapping, or nil when the document has none.
func (d *Document) Jobs() *yaml.Node {
	jobs := Get(d.Root(), "jobs")
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return nil
	}
	return jobs
}

// Encode serializes the document.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	node := Clone(d.node)
	clearLeadingSpace(node)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return expandBlankMarkers(buf.Bytes()), nil
}

// clearLeadingSpace drops the blank line flag from the first key of every
// mapping; a blank line never directly follows the line opening a block.
func clearLeadingSpace(n *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			clearLeadingSpace(c)
		}
	case yaml.MappingNode:
		if len(n.Content) > 0 && SpaceBefore(n.Content[0]) {
			SetSpaceBefore(n.Content[0], false)
		}
		for i := 1; i < len(n.Content); i += 2 {
			clearLeadingSpace(n.Content[i])
		}
	}
}

// markBlankLines flags every mapping key whose source is preceded by an
// empty line, looking past the key's own comment lines.
func markBlankLines(m *yaml.Node, lines []string, spaced bool) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if spaced && precededByBlank(lines, key.Line) {
			SetSpaceBefore(key, true)
		}
		switch value.Kind {
		case yaml.MappingNode:
			markBlankLines(value, lines, true)
		case yaml.SequenceNode:
			markSequence(value, lines)
		}
	}
}

// markSequence descends into sequence items. The first key of an item
// mapping shares its line with the dash and is never flagged.
func markSequence(seq *yaml.Node, lines []string) {
	for _, item := range seq.Content {
		switch item.Kind {
		case yaml.MappingNode:
			markBlankLines(item, lines, false)
			for i := 2; i+1 < len(item.Content); i += 2 {
				if precededByBlank(lines, item.Content[i].Line) {
					SetSpaceBefore(item.Content[i], true)
				}
			}
		case yaml.SequenceNode:
			markSequence(item, lines)
		}
	}
}

func precededByBlank(lines []string, line int) bool {
	idx := line - 2
	if idx >= len(lines) {
		return false
	}
	for idx >= 0 && strings.HasPrefix(strings.TrimSpace(lines[idx]), "#") {
		idx--
	}
	return idx >= 0 && strings.TrimSpace(lines[idx]) == ""
}

// expandBlankMarkers turns blank markers emitted as comment lines into
// empty lines, never producing two empty lines in a row.
func expandBlankMarkers(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == blankMarker {
			if len(out) == 0 || strings.TrimSpace(out[len(out)-1]) == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n"))
}
