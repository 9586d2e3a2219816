package validate

import (
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// job is one node of the dependency graph.
type job struct {
	name  string
	needs []string
	cond  string
	line  int
	body  *yaml.Node
}

// graph holds jobs in declaration order.
type graph struct {
	jobs  []*job
	index map[string]*job
}

func buildGraph(jobs *yaml.Node) *graph {
	g := &graph{index: make(map[string]*job)}
	for _, p := range yamldoc.Pairs(jobs) {
		if _, dup := g.index[p.Name()]; dup {
			continue
		}
		j := &job{name: p.Name(), line: p.Key.Line, body: p.Value}
		if p.Value.Kind == yaml.MappingNode {
			j.needs = unique(yamldoc.StringList(yamldoc.Get(p.Value, "needs")))
			j.cond, _ = yamldoc.ScalarValue(p.Value, "if")
		}
		g.jobs = append(g.jobs, j)
		g.index[j.name] = j
	}
	return g
}

func (g *graph) has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// cycles walks the graph depth first in declaration order, following needs
// edges, and returns every distinct cycle once. Each cycle starts and ends
// with the node first revisited on the recursion stack.
func (g *graph) cycles() [][]string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.jobs))
	var (
		stack []string
		found [][]string
		seen  = map[string]bool{}
	)

	var visit func(name string)
	visit = func(name string) {
		color[name] = gray
		stack = append(stack, name)
		for _, next := range g.index[name].needs {
			if !g.has(next) {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case gray:
				start := indexOf(stack, next)
				cycle := append(append([]string(nil), stack[start:]...), next)
				if key := cycleKey(cycle); !seen[key] {
					seen[key] = true
					found = append(found, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
	}

	for _, j := range g.jobs {
		if color[j.name] == white {
			visit(j.name)
		}
	}
	return found
}

// cycleKey identifies a cycle independently of where it was entered.
func cycleKey(cycle []string) string {
	nodes := cycle[:len(cycle)-1]
	first := 0
	for i, n := range nodes {
		if n < nodes[first] {
			first = i
		}
	}
	rotated := append(append([]string(nil), nodes[first:]...), nodes[:first]...)
	return strings.Join(rotated, "\x00")
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func unique(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// scalars returns every scalar value under n.
func scalars(n *yaml.Node) []string {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}
	}
	var out []string
	for _, c := range n.Content {
		out = append(out, scalars(c)...)
	}
	return out
}
