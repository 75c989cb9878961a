//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-flow-go/flow/internal/pathutil"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// DNode is a runtime node instance: a name, a kind tag, and a pull-based
// value rule evaluated against the current state of its graph.
type DNode interface {
	// Name returns the unique node name within its graph.
	Name() string
	// Kind returns the node's type tag.
	Kind() string
	// Decl returns the (preprocessed) declaration the node was built from.
	Decl() NodeDecl
	// Graph returns the owning graph.
	Graph() *Graph

	// compute produces the node's current value, Absent when
	// dependencies are still unresolved, or an error. Callers go through
	// evalPass.valueOf, which memoizes per pass.
	compute(p *evalPass) (any, error)
}

// starter is implemented by kinds that need activation when a run begins
// (async nodes awaiting their deferred, subgraph nodes observing inputs).
type starter interface {
	start(ctx context.Context)
}

type baseNode struct {
	name  string
	kind  string
	decl  NodeDecl
	graph *Graph
}

func (n *baseNode) Name() string   { return n.name }
func (n *baseNode) Kind() string   { return n.kind }
func (n *baseNode) Decl() NodeDecl { return n.decl }
func (n *baseNode) Graph() *Graph  { return n.graph }

func newBase(g *Graph, decl NodeDecl) baseNode {
	return baseNode{name: decl.Name(), kind: decl.Kind(), decl: decl, graph: g}
}

// evalPass memoizes node values for one recomputation so diamond-shaped
// dependency graphs evaluate each node once.
type evalPass struct {
	cache      map[DNode]passResult
	inProgress map[DNode]bool
}

type passResult struct {
	value any
	err   error
}

func newEvalPass() *evalPass {
	return &evalPass{
		cache:      make(map[DNode]passResult),
		inProgress: make(map[DNode]bool),
	}
}

// valueOf reads a node's current value through the pass cache. A node
// re-entered while already computing reads as Absent, so a declaration
// cycle stalls instead of recursing without bound.
func (p *evalPass) valueOf(n DNode) (any, error) {
	if r, ok := p.cache[n]; ok {
		return r.value, r.err
	}
	if p.inProgress[n] {
		return Absent, nil
	}
	p.inProgress[n] = true
	v, err := n.compute(p)
	delete(p.inProgress, n)
	p.cache[n] = passResult{value: v, err: err}
	return v, err
}

// graphValueAt is the value-reading protocol shared by every node kind:
// split off the node id, read that node's current value, materialize it,
// then apply the remaining value path (wildcard allowed). A missing node
// logs and reads as Absent; Absent propagates.
func (p *evalPass) graphValueAt(g *Graph, path string) (any, error) {
	nodeID, valuePath := pathutil.SplitNodePath(path)
	n := g.node(nodeID)
	if n == nil {
		log.Debugf("graph %q: path %q names no node %q", g.name, path, nodeID)
		return Absent, nil
	}
	v, err := p.valueOf(n)
	if err != nil || IsAbsent(v) {
		return v, err
	}
	v = cloneValue(v)
	if valuePath == "" {
		return v, nil
	}
	out, err := pathutil.GetWildcard(v, valuePath)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	return out, nil
}

// resolvedEntry is one resolved path definition entry.
type resolvedEntry struct {
	Key   string
	Value any
}

// resolveEntries resolves every entry of a path definition against g.
// ok is false while any entry is still Absent.
func (p *evalPass) resolveEntries(g *Graph, pd PathDef) (entries []resolvedEntry, ok bool, err error) {
	entries = make([]resolvedEntry, 0, len(pd))
	ok = true
	for _, e := range pd {
		v, err := p.graphValueAt(g, e.Path)
		if err != nil {
			return nil, false, err
		}
		if IsAbsent(v) {
			ok = false
		}
		entries = append(entries, resolvedEntry{Key: e.Key, Value: v})
	}
	return entries, ok, nil
}

// newNode instantiates the declared node. The kind set is closed.
func newNode(g *Graph, decl NodeDecl) (DNode, error) {
	if decl.Name() == "" {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("missing name")}
	}
	switch decl.Kind() {
	case KindStatic:
		return newStaticNode(g, decl)
	case KindComments:
		return newCommentsNode(g, decl)
	case KindAlias:
		return newAliasNode(g, decl)
	case KindEcho:
		return newEchoNode(g, decl)
	case KindDereference:
		return newDereferenceNode(g, decl)
	case KindTransform:
		return newTransformNode(g, decl)
	case KindInputs:
		return newInputsNode(g, decl)
	case KindAsync:
		return newAsyncNode(g, decl)
	case KindBranch:
		return newBranchNode(g, decl)
	case KindGraph:
		return newGraphNode(g, decl)
	default:
		return nil, &DeclarationError{
			Node: decl.Name(),
			Err:  fmt.Errorf("%w: %q", ErrUnknownNodeKind, decl.Kind()),
		}
	}
}

// declPathDef returns the normalized path definition stored at field, if
// preprocessing put one there.
func declPathDef(decl NodeDecl, field string) (PathDef, bool) {
	pd, ok := decl[field].(PathDef)
	return pd, ok
}
