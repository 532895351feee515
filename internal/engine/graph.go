// Package engine orders synthesized stacks by their dependencies and
// compares synthesized templates.
package engine

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/picklr-io/datastacks/internal/ir"
)

// StackGraph is the dependency graph of a cloud assembly. An edge runs
// from a dependency to the stack that needs it.
type StackGraph struct {
	g      graph.Graph[string, *ir.StackInfo]
	stacks map[string]*ir.StackInfo
}

func stackHash(s *ir.StackInfo) string { return s.Name }

// BuildStackGraph constructs the graph. Unknown dependency names and cycles
// are errors.
func BuildStackGraph(stacks []*ir.StackInfo) (*StackGraph, error) {
	sg := &StackGraph{
		g:      graph.New(stackHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
		stacks: make(map[string]*ir.StackInfo, len(stacks)),
	}

	for _, s := range stacks {
		if err := sg.g.AddVertex(s); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, fmt.Errorf("duplicate stack name %s", s.Name)
			}
			return nil, err
		}
		sg.stacks[s.Name] = s
	}

	for _, s := range stacks {
		for _, dep := range s.Dependencies {
			if _, ok := sg.stacks[dep]; !ok {
				return nil, fmt.Errorf("stack %s depends on unknown stack %s", s.Name, dep)
			}
			if err := sg.g.AddEdge(dep, s.Name); err != nil {
				switch {
				case errors.Is(err, graph.ErrEdgeAlreadyExists):
					continue
				case errors.Is(err, graph.ErrEdgeCreatesCycle):
					return nil, fmt.Errorf("dependency cycle detected: %s -> %s", s.Name, dep)
				default:
					return nil, err
				}
			}
		}
	}

	return sg, nil
}

// DeployOrder returns stack names so that every stack follows its
// dependencies. Ties break alphabetically.
func (sg *StackGraph) DeployOrder() ([]string, error) {
	return graph.StableTopologicalSort(sg.g, func(a, b string) bool { return a < b })
}

// DestroyOrder is DeployOrder reversed.
func (sg *StackGraph) DestroyOrder() ([]string, error) {
	order, err := sg.DeployOrder()
	if err != nil {
		return nil, err
	}
	slices.Reverse(order)
	return order, nil
}

// Dependencies returns the direct dependencies of a stack, sorted.
func (sg *StackGraph) Dependencies(name string) ([]string, error) {
	pred, err := sg.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	edges, ok := pred[name]
	if !ok {
		return nil, fmt.Errorf("unknown stack %s", name)
	}
	deps := make([]string, 0, len(edges))
	for dep := range edges {
		deps = append(deps, dep)
	}
	slices.Sort(deps)
	return deps, nil
}

// Dependents returns every stack that transitively depends on name.
func (sg *StackGraph) Dependents(name string) ([]string, error) {
	if _, ok := sg.stacks[name]; !ok {
		return nil, fmt.Errorf("unknown stack %s", name)
	}
	var out []string
	err := graph.BFS(sg.g, name, func(v string) bool {
		if v != name {
			out = append(out, v)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// Stack returns the stack with the given name, or nil.
func (sg *StackGraph) Stack(name string) *ir.StackInfo {
	return sg.stacks[name]
}

// WriteDOT renders the graph in Graphviz format.
func (sg *StackGraph) WriteDOT(w io.Writer) error {
	return draw.DOT(sg.g, w, draw.GraphAttribute("rankdir", "LR"))
}

// WriteText renders one line per stack, followed by its direct
// dependencies. Stacks are listed in deploy order, or in destroy order
// when destroy is set.
func (sg *StackGraph) WriteText(w io.Writer, destroy bool) error {
	order, err := sg.DeployOrder()
	if destroy {
		order, err = sg.DestroyOrder()
	}
	if err != nil {
		return err
	}
	for _, name := range order {
		deps, err := sg.Dependencies(name)
		if err != nil {
			return err
		}
		line := name
		if app := sg.stacks[name].App; app != "" {
			line = fmt.Sprintf("%s (%s)", name, app)
		}
		if len(deps) > 0 {
			line += " <- " + strings.Join(deps, ", ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
