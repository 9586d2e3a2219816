package yamldoc

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Pair is one mapping entry.
type Pair struct {
	Key   *yaml.Node
	Value *yaml.Node
}

// Name returns the key text.
func (p Pair) Name() string {
	return p.Key.Value
}

// NewMapping returns an empty block mapping.
func NewMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// NewSequence returns a block sequence holding items.
func NewSequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// NewString returns a string scalar. Strings that would read back as another
// type are quoted on encode.
func NewString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// FromValue converts a Go value into a node tree. Maps encode with sorted
// keys; use a *yaml.Node when order matters.
func FromValue(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *yaml.Node:
		if val.Kind == yaml.DocumentNode && len(val.Content) == 1 {
			return Clone(val.Content[0]), nil
		}
		return Clone(val), nil
	case string:
		return NewString(val), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(val)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(val, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(val, 'g', -1, 64)}, nil
	case []string:
		seq := NewSequence()
		for _, s := range val {
			seq.Content = append(seq.Content, NewString(s))
		}
		return seq, nil
	case []any:
		seq := NewSequence()
		for _, item := range val {
			n, err := FromValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMapping()
		for _, k := range keys {
			n, err := FromValue(val[k])
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, NewString(k), n)
		}
		return m, nil
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, fmt.Errorf("convert %T: %w", v, err)
		}
		return &n, nil
	}
}

// Clone deep-copies n. Alias targets are shared.
func Clone(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = Clone(child)
		}
	}
	return &c
}

// Equal reports structural equality, ignoring comments, style and position.
func Equal(a, b *yaml.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || len(a.Content) != len(b.Content) {
		return false
	}
	switch a.Kind {
	case yaml.ScalarNode:
		return a.Value == b.Value && scalarTag(a) == scalarTag(b)
	case yaml.AliasNode:
		return a.Value == b.Value
	}
	for i := range a.Content {
		if !Equal(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}

func scalarTag(n *yaml.Node) string {
	if n.Tag != "" && n.Tag != "!" {
		return n.ShortTag()
	}
	return "!!str"
}

// IsNull reports whether n is absent or an explicit null scalar.
func IsNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// Pairs returns the entries of mapping m in order.
func Pairs(m *yaml.Node) []Pair {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	pairs := make([]Pair, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		pairs = append(pairs, Pair{Key: m.Content[i], Value: m.Content[i+1]})
	}
	return pairs
}

// Keys returns the keys of mapping m in order.
func Keys(m *yaml.Node) []string {
	pairs := Pairs(m)
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Name()
	}
	return keys
}

// Index returns the pair index of key in m, or -1.
func Index(m *yaml.Node, key string) int {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i / 2
		}
	}
	return -1
}

// Get returns the value stored under key, or nil.
func Get(m *yaml.Node, key string) *yaml.Node {
	if i := Index(m, key); i >= 0 {
		return m.Content[2*i+1]
	}
	return nil
}

// KeyNode returns the key node for key, or nil.
func KeyNode(m *yaml.Node, key string) *yaml.Node {
	if i := Index(m, key); i >= 0 {
		return m.Content[2*i]
	}
	return nil
}

// ScalarValue returns the value under key when it is a scalar.
func ScalarValue(m *yaml.Node, key string) (string, bool) {
	v := Get(m, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// Set stores value under key, replacing in place or appending. It returns
// the key node.
func Set(m *yaml.Node, key string, value *yaml.Node) *yaml.Node {
	if i := Index(m, key); i >= 0 {
		m.Content[2*i+1] = value
		return m.Content[2*i]
	}
	k := NewString(key)
	m.Content = append(m.Content, k, value)
	return k
}

// InsertBefore adds key before the entry named before, or appends when
// before is absent. An existing key is left where it is and its value is
// replaced.
func InsertBefore(m *yaml.Node, before, key string, value *yaml.Node) *yaml.Node {
	if Index(m, key) >= 0 {
		return Set(m, key, value)
	}
	pos := Index(m, before)
	if pos < 0 {
		return Set(m, key, value)
	}
	k := NewString(key)
	content := make([]*yaml.Node, 0, len(m.Content)+2)
	content = append(content, m.Content[:2*pos]...)
	content = append(content, k, value)
	content = append(content, m.Content[2*pos:]...)
	m.Content = content
	return k
}

// Delete removes key from m and reports whether it was present.
func Delete(m *yaml.Node, key string) bool {
	i := Index(m, key)
	if i < 0 {
		return false
	}
	m.Content = append(m.Content[:2*i], m.Content[2*i+2:]...)
	return true
}

// StringList reads a scalar or a sequence of scalars as a list of strings.
func StringList(n *yaml.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if IsNull(n) || n.Value == "" {
			return nil
		}
		return []string{n.Value}
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode && !IsNull(item) {
				out = append(out, item.Value)
			}
		}
		return out
	}
	return nil
}
