package builders

import (
	"fmt"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// tree builds ordered node trees and keeps the first conversion error.
type tree struct {
	err error
}

// m builds a mapping from alternating keys and values. Nil values are
// left out.
func (t *tree) m(kv ...any) *yaml.Node {
	out := yamldoc.NewMapping()
	if len(kv)%2 != 0 {
		t.fail(fmt.Errorf("odd number of mapping arguments"))
		return out
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			t.fail(fmt.Errorf("mapping key %v is not a string", kv[i]))
			continue
		}
		if kv[i+1] == nil {
			continue
		}
		yamldoc.Set(out, key, t.node(kv[i+1]))
	}
	return out
}

// seq builds a sequence.
func (t *tree) seq(items ...any) *yaml.Node {
	out := yamldoc.NewSequence()
	for _, item := range items {
		out.Content = append(out.Content, t.node(item))
	}
	return out
}

func (t *tree) node(v any) *yaml.Node {
	n, err := yamldoc.FromValue(v)
	if err != nil {
		t.fail(err)
		return yamldoc.NewString("")
	}
	return n
}

func (t *tree) fail(err error) {
	if t.err == nil {
		t.err = err
	}
}
