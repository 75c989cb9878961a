//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package flow implements a reactive evaluator for serializable
// dependency graphs: a JSON declaration of literal, alias, transform,
// branch, dereference, and subgraph nodes is driven to a fixpoint over a
// mapping of (possibly deferred) inputs.
package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-flow-go/event"
	"trpc.group/trpc-go/trpc-flow-go/flow/internal/pathutil"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// State is a snapshot of node names to current values.
type State map[string]any

// Edge records one declared dependency, derived after construction for
// introspection only; the driver never traverses edges.
type Edge struct {
	SrcNodeID    string `json:"srcNodeId"`
	SrcPropName  string `json:"srcPropName"`
	DstNodeID    string `json:"dstNodeId"`
	DstValuePath string `json:"dstValuePath,omitempty"`
}

// Graph is a named collection of nodes sharing a namespace and a reactive
// driver. A graph owns its nodes and its embedded child graphs; the
// parent pointer is non-owning and serves name lookup only.
type Graph struct {
	name    string
	parent  *Graph
	options Options
	emitter *event.Emitter

	def   GraphDef
	nodes map[string]DNode
	order []string
	edges []Edge
	in    *inputsNode

	mu       sync.Mutex
	wake     chan struct{}
	runCtx   context.Context
	runErr   error
	running  bool
	provided map[string]bool
}

// New constructs a graph from a declaration. The declaration is cloned,
// preprocessed (aliases, inputs node, literal hoisting), and every node
// is instantiated; edges are then derived. Fires constructed and
// connected on the graph's emitter.
func New(def GraphDef, opts ...Option) (*Graph, error) {
	cfg := graphConfig{name: "graph"}
	for _, opt := range opts {
		opt(&cfg)
	}
	g := &Graph{
		name:    cfg.name,
		parent:  cfg.parent,
		options: cfg.options,
		emitter: event.NewEmitter(),
		nodes:   make(map[string]DNode),
		wake:    make(chan struct{}, 1),
	}
	pre, err := preprocess(def, g)
	if err != nil {
		return nil, err
	}
	g.def = pre
	for _, d := range pre {
		n, err := newNode(g, d)
		if err != nil {
			return nil, err
		}
		g.nodes[d.Name()] = n
		g.order = append(g.order, d.Name())
		if in, ok := n.(*inputsNode); ok {
			g.in = in
		}
	}
	g.emitter.Emit(event.New(g.name, event.TypeConstructed))

	if err := g.connect(); err != nil {
		return nil, err
	}
	return g, nil
}

// connect resolves template references on subgraph nodes and derives the
// edge list, then fires connected.
func (g *Graph) connect() error {
	for _, name := range g.order {
		if gn, ok := g.nodes[name].(*graphNode); ok {
			if err := gn.resolveTemplate(); err != nil {
				return err
			}
		}
	}
	g.edges = deriveEdges(g)
	g.emitter.Emit(event.New(g.name, event.TypeConnected))
	return nil
}

// deriveEdges emits one edge per normalized (key, path) pair of every
// path-bearing field, plus the implicit input edge of echo nodes.
func deriveEdges(g *Graph) []Edge {
	var edges []Edge
	for _, name := range g.order {
		n := g.nodes[name]
		if e, ok := n.(*echoNode); ok {
			dst, valuePath := pathutil.SplitNodePath(e.inputPath)
			edges = append(edges, Edge{
				SrcNodeID:    name,
				SrcPropName:  fieldInputName,
				DstNodeID:    dst,
				DstValuePath: valuePath,
			})
			continue
		}
		for field := range pathFieldsFor(n.Kind()) {
			pd, ok := declPathDef(n.Decl(), field)
			if !ok {
				continue
			}
			for _, entry := range pd {
				dst, valuePath := pathutil.SplitNodePath(entry.Path)
				edges = append(edges, Edge{
					SrcNodeID:    name,
					SrcPropName:  entry.Key,
					DstNodeID:    dst,
					DstValuePath: valuePath,
				})
			}
		}
	}
	return edges
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Options returns the graph's options record.
func (g *Graph) Options() Options { return g.options }

// On registers a lifecycle event handler.
func (g *Graph) On(typ event.Type, handler event.Handler) *event.Subscription {
	return g.emitter.On(typ, handler)
}

// Once registers a one-shot lifecycle event handler.
func (g *Graph) Once(typ event.Type, handler event.Handler) *event.Subscription {
	return g.emitter.Once(typ, handler)
}

// Off removes a previously registered handler.
func (g *Graph) Off(sub *event.Subscription) {
	g.emitter.Off(sub)
}

// node looks the node up by name in this graph only.
func (g *Graph) node(name string) DNode {
	return g.nodes[name]
}

// Node returns the named node, or nil.
func (g *Graph) Node(name string) DNode {
	return g.node(name)
}

// LookupNode returns the named node, walking to supergraphs when
// searchAncestors is set.
func (g *Graph) LookupNode(name string, searchAncestors bool) DNode {
	if n := g.node(name); n != nil {
		return n
	}
	if searchAncestors && g.parent != nil {
		return g.parent.LookupNode(name, true)
	}
	return nil
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []DNode {
	out := make([]DNode, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Edges returns the derived edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// root walks to the topmost supergraph.
func (g *Graph) root() *Graph {
	r := g
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// visible applies the output visibility rules.
func (g *Graph) visible(n DNode) bool {
	name := n.Name()
	if strings.HasPrefix(name, hiddenPrefix) {
		return g.options.EchoIntermediates
	}
	if n.Kind() == KindInputs {
		return g.options.EchoInputs
	}
	if n.Decl().Hidden() {
		return false
	}
	if gn, ok := n.(*graphNode); ok && gn.isTemplate {
		return g.options.EchoTemplates
	}
	return true
}

// computeState evaluates every (visible) node under one pass.
func (g *Graph) computeState(p *evalPass, includeHidden bool) (State, error) {
	state := make(State)
	for _, name := range g.order {
		n := g.nodes[name]
		if !includeHidden && !g.visible(n) {
			continue
		}
		v, err := p.valueOf(n)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		state[name] = cloneValue(v)
	}
	return state, nil
}

// State returns a snapshot of current node values. An evaluation error is
// logged and yields a nil snapshot; the driver surfaces such errors
// through Run instead.
func (g *Graph) State(includeHidden bool) State {
	state, err := g.computeState(newEvalPass(), includeHidden)
	if err != nil {
		log.Errorf("%sgraph %q: state snapshot: %v", g.logIndent(), g.name, err)
	}
	return state
}

// UndefinedPaths flattens the state and collects every path whose leaf is
// still absent (or NaN).
func UndefinedPaths(state State) []string {
	flat := pathutil.Flatten(map[string]any(state))
	var out []string
	for path, leaf := range flat {
		if undefinedLeaf(leaf) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// expectedInputNames scans every path-bearing field for inputs.<name>
// references; echo nodes contribute their input name.
func (g *Graph) expectedInputNames() []string {
	seen := make(map[string]bool)
	for _, d := range g.def {
		for field := range pathFieldsFor(d.Kind()) {
			pd, ok := declPathDef(d, field)
			if !ok {
				continue
			}
			for _, entry := range pd {
				segs := pathutil.Split(entry.Path)
				if len(segs) > 1 && segs[0] == inputsNodeName && segs[1] != pathutil.Wildcard {
					seen[segs[1]] = true
				}
			}
		}
	}
	for _, name := range g.order {
		if e, ok := g.nodes[name].(*echoNode); ok {
			seen[e.inputName()] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasInput reports whether the graph holds, was handed (possibly still
// deferred), or expects a top-level input with the given name. Used by
// subgraph pass-through resolution.
func (g *Graph) hasInput(name string) bool {
	g.in.mu.RLock()
	_, present := g.in.values[name]
	g.in.mu.RUnlock()
	if present {
		return true
	}
	g.mu.Lock()
	handed := g.provided[name]
	g.mu.Unlock()
	if handed {
		return true
	}
	for _, expected := range g.expectedInputNames() {
		if expected == name {
			return true
		}
	}
	return false
}

// wakeDriver nudges the run loop; a pending wake is never dropped, extra
// wakes coalesce.
func (g *Graph) wakeDriver() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// failRun records an external failure (for example a rejected deferred
// input) for the driver to surface.
func (g *Graph) failRun(err error) {
	g.mu.Lock()
	if g.runErr == nil {
		g.runErr = err
	}
	g.mu.Unlock()
	g.wakeDriver()
}

func (g *Graph) takeRunErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runErr
}

// runContext returns the context of the active run.
func (g *Graph) runContext() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runCtx != nil {
		return g.runCtx
	}
	return context.Background()
}

func (g *Graph) logIndent() string {
	return strings.Repeat("  ", g.options.Depth)
}
