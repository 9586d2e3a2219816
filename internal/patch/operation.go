package patch

import (
	"fmt"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// Policy decides how an operation treats content already at its path.
type Policy string

const (
	// PolicySet creates absent content and adds missing keys to mappings.
	PolicySet Policy = "set"
	// PolicyMerge unions a sequence with new unique items.
	PolicyMerge Policy = "merge"
	// PolicyOverwrite replaces whatever is at the path.
	PolicyOverwrite Policy = "overwrite"
	// PolicyPreserve keeps existing content and only fills in absent paths.
	PolicyPreserve Policy = "preserve"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicySet, PolicyMerge, PolicyOverwrite, PolicyPreserve:
		return true
	}
	return false
}

type valueKind int

const (
	kindNone valueKind = iota
	kindLiteral
	kindTree
	kindRaw
)

// Value is the payload of an Operation: a Go literal, a prebuilt node tree,
// or YAML text parsed on use.
type Value struct {
	kind    valueKind
	literal any
	tree    *yaml.Node
	raw     string
}

// Literal wraps a Go scalar, slice or map.
func Literal(v any) Value {
	return Value{kind: kindLiteral, literal: v}
}

// Tree wraps a node. The node is cloned on every use.
func Tree(n *yaml.Node) Value {
	return Value{kind: kindTree, tree: n}
}

// RawText wraps a YAML fragment.
func RawText(s string) Value {
	return Value{kind: kindRaw, raw: s}
}

// Node materializes the value as a fresh node tree.
func (v Value) Node() (*yaml.Node, error) {
	switch v.kind {
	case kindLiteral:
		return yamldoc.FromValue(v.literal)
	case kindTree:
		if v.tree == nil {
			return nil, fmt.Errorf("%w: nil tree value", ErrInvalidOperation)
		}
		return yamldoc.FromValue(v.tree)
	case kindRaw:
		var n yaml.Node
		if err := yaml.Unmarshal([]byte(v.raw), &n); err != nil {
			return nil, fmt.Errorf("%w: raw value: %v", ErrInvalidOperation, err)
		}
		if n.Kind == 0 || len(n.Content) == 0 {
			return yamldoc.FromValue(nil)
		}
		return n.Content[0], nil
	default:
		return nil, fmt.Errorf("%w: empty value", ErrInvalidOperation)
	}
}

// Operation is one declarative instruction against a document path.
type Operation struct {
	Path   string
	Policy Policy
	Value  Value

	// Required makes set and merge create missing parent mappings instead
	// of skipping the operation.
	Required bool

	CommentBefore string
	SpaceBefore   bool
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s", o.Policy, o.Path)
}

// Set, Merge, Overwrite and Preserve are shorthands for building operations.

func Set(path string, v Value) Operation {
	return Operation{Path: path, Policy: PolicySet, Value: v}
}

func Merge(path string, v Value) Operation {
	return Operation{Path: path, Policy: PolicyMerge, Value: v}
}

func Overwrite(path string, v Value) Operation {
	return Operation{Path: path, Policy: PolicyOverwrite, Value: v}
}

func Preserve(path string, v Value) Operation {
	return Operation{Path: path, Policy: PolicyPreserve, Value: v}
}

// WithComment returns o with a head comment and blank line flag.
func (o Operation) WithComment(comment string, spaceBefore bool) Operation {
	o.CommentBefore = comment
	o.SpaceBefore = spaceBefore
	return o
}

// MarkRequired returns o with Required set.
func (o Operation) MarkRequired() Operation {
	o.Required = true
	return o
}
