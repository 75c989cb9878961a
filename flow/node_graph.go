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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/panjf2000/ants/v2"
	"trpc.group/trpc-go/trpc-flow-go/flow/internal/pathutil"
)

// mapPoolSize caps concurrent per-element child runs in map mode.
const mapPoolSize = 8

// graphNode embeds a child graph. Templates are never executed in place;
// other graph nodes resolve their inputs from the parent context (or an
// explicit inputs declaration) and, once every input has a value, run a
// fresh child graph. In map mode one child runs per element of the
// collection input.
type graphNode struct {
	baseNode
	isTemplate     bool
	collectionMode string
	templateRef    string
	explicitInputs PathDef
	hasExplicit    bool
	childDef       GraphDef

	mu      sync.Mutex
	started bool
	done    bool
	result  any
	err     error

	passOnce    sync.Once
	passthrough []string
}

func newGraphNode(g *Graph, decl NodeDecl) (DNode, error) {
	n := &graphNode{
		baseNode:       newBase(g, decl),
		isTemplate:     decl.IsTemplate(),
		collectionMode: decl.str(fieldCollectionMode),
	}
	if n.collectionMode != "" && n.collectionMode != CollectionModeMap {
		return nil, &DeclarationError{
			Node: decl.Name(),
			Err:  fmt.Errorf("unsupported collectionMode %q", n.collectionMode),
		}
	}
	switch raw := decl[fieldGraphDef].(type) {
	case string:
		// Template reference; resolution waits until the enclosing
		// graph is constructed.
		n.templateRef = raw
	default:
		def, ok := asGraphDef(raw)
		if !ok {
			return nil, &DeclarationError{
				Node: decl.Name(),
				Err:  errors.New("graph requires graphDef (declaration array or template name)"),
			}
		}
		n.childDef = def
	}
	if pd, ok := declPathDef(decl, fieldInputs); ok {
		n.explicitInputs = pd
		n.hasExplicit = true
	}
	return n, nil
}

// resolveTemplate swaps a template name for the referenced template's
// declaration. Ancestor graphs are searched.
func (n *graphNode) resolveTemplate() error {
	if n.templateRef == "" {
		return nil
	}
	ref := n.graph.LookupNode(n.templateRef, true)
	if ref == nil {
		return &ResolutionError{Graph: n.graph.name, Ref: n.templateRef}
	}
	tmpl, ok := ref.(*graphNode)
	if !ok {
		return &DeclarationError{
			Node: n.name,
			Err:  fmt.Errorf("graphDef %q names a %s node, not a graph", n.templateRef, ref.Kind()),
		}
	}
	if tmpl.childDef == nil {
		if err := tmpl.resolveTemplate(); err != nil {
			return err
		}
	}
	n.childDef = tmpl.childDef
	return nil
}

func (n *graphNode) compute(p *evalPass) (any, error) {
	if n.isTemplate {
		return templatePlaceholder, nil
	}
	n.mu.Lock()
	if n.done {
		result, err := n.result, n.err
		n.mu.Unlock()
		return result, err
	}
	started := n.started
	n.mu.Unlock()
	if started {
		return Absent, nil
	}

	resolved, ok, err := n.resolveInputs(p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Absent, nil
	}

	n.mu.Lock()
	if !n.started {
		n.started = true
		go n.runChild(resolved)
	}
	n.mu.Unlock()
	return Absent, nil
}

// resolveInputs produces the child-facing input mapping, or ok=false
// while any piece is still absent.
func (n *graphNode) resolveInputs(p *evalPass) (map[string]any, bool, error) {
	flat := make(map[string]any)
	if n.hasExplicit {
		entries, ok, err := p.resolveEntries(n.graph, n.explicitInputs)
		if err != nil || !ok {
			return nil, false, err
		}
		for i, e := range entries {
			key := e.Key
			if n.explicitInputs[i].Key == n.explicitInputs[i].Path {
				// Degenerate entry from the string/sequence pathdef
				// shapes: the path doubles as the key. Bind the single
				// entry to "collection" in map mode, otherwise to the
				// last named path segment.
				if n.collectionMode == CollectionModeMap && len(entries) == 1 {
					key = mapCollectionInputName
				} else {
					key = lastNamedSegment(key)
				}
			}
			flat[key] = e.Value
		}
	} else {
		for _, id := range n.passthroughIDs() {
			v, err := n.resolvePassthrough(p, id)
			if err != nil {
				return nil, false, err
			}
			if IsAbsent(v) {
				return nil, false, nil
			}
			flat[id] = v
		}
	}
	expanded, ok := pathutil.Expand(flat).(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("graph %q: inputs do not expand to a mapping", n.name)
	}
	return expanded, true, nil
}

// passthroughIDs collects the top-level input names the child declaration
// references, excluding the per-element name injected by map mode and
// including the collection input map mode requires.
func (n *graphNode) passthroughIDs() []string {
	n.passOnce.Do(func() {
		seen := make(map[string]bool)
		for _, d := range n.childDef {
			for field := range pathFieldsFor(d.Kind()) {
				raw, present := d[field]
				if !present || raw == nil {
					continue
				}
				entries, err := normalizeRaw(raw)
				if err != nil {
					continue
				}
				for _, e := range entries {
					s, ok := e.Value.(string)
					if !ok {
						continue
					}
					segs := pathutil.Split(s)
					if len(segs) > 1 && segs[0] == inputsNodeName && segs[1] != pathutil.Wildcard {
						seen[segs[1]] = true
					}
				}
			}
			if d.Kind() == KindEcho {
				name := d.str(fieldInputName)
				if name == "" {
					name = d.Name()
				}
				seen[name] = true
			}
		}
		if n.collectionMode == CollectionModeMap {
			delete(seen, mapItemInputName)
			seen[mapCollectionInputName] = true
		}
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		n.passthrough = ids
	})
	return n.passthrough
}

// resolvePassthrough follows the lookup chain for an implicit input:
// parent node, then the immediate parent's inputs, then the root graph's
// inputs.
func (n *graphNode) resolvePassthrough(p *evalPass, id string) (any, error) {
	parent := n.graph
	escaped := pathutil.EscapeSegment(id)
	if parent.node(id) != nil {
		return p.graphValueAt(parent, escaped)
	}
	if parent.hasInput(id) {
		return p.graphValueAt(parent, inputsNodeName+"."+escaped)
	}
	if root := parent.root(); root != parent && root.hasInput(id) {
		return p.graphValueAt(root, inputsNodeName+"."+escaped)
	}
	return nil, &ResolutionError{Graph: parent.name, Ref: id}
}

// runChild executes the child graph(s) off the driver goroutine and
// stores the node's value on completion.
func (n *graphNode) runChild(inputs map[string]any) {
	if n.collectionMode == CollectionModeMap {
		n.finish(n.runMapped(inputs))
		return
	}
	child, err := n.newChild(n.name)
	if err != nil {
		n.finish(nil, err)
		return
	}
	state, err := child.Run(n.graph.runContext(), inputs)
	// Hand the result over as a plain mapping so path addressing and
	// flattening descend into it.
	n.finish(map[string]any(state), err)
}

// runMapped instantiates one fresh child per collection element and
// preserves element order in the result.
func (n *graphNode) runMapped(inputs map[string]any) (any, error) {
	collection, ok := inputs[mapCollectionInputName]
	if !ok {
		return nil, fmt.Errorf("graph %q: map mode requires a %q input", n.name, mapCollectionInputName)
	}
	seq, ok := collection.([]any)
	if !ok {
		return nil, fmt.Errorf("graph %q: map mode %q is not a sequence (got %T)",
			n.name, mapCollectionInputName, collection)
	}
	if len(seq) == 0 {
		return []any{}, nil
	}

	size := len(seq)
	if size > mapPoolSize {
		size = mapPoolSize
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("graph %q: map pool: %w", n.name, err)
	}
	defer pool.Release()

	results := make([]any, len(seq))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, el := range seq {
		i, el := i, el
		wg.Add(1)
		task := func() {
			defer wg.Done()
			childInputs := map[string]any{mapItemInputName: el}
			for k, v := range inputs {
				if k != mapCollectionInputName {
					childInputs[k] = v
				}
			}
			child, err := n.newChild(n.name + "-" + strconv.Itoa(i))
			if err == nil {
				var state State
				state, err = child.Run(n.graph.runContext(), childInputs)
				results[i] = map[string]any(state)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("element %d: %w", i, err)
				}
				mu.Unlock()
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, fmt.Errorf("graph %q: %w", n.name, firstErr)
	}
	return results, nil
}

func (n *graphNode) newChild(name string) (*Graph, error) {
	opts := n.graph.options
	opts.Depth++
	return New(n.childDef, WithName(name), WithParent(n.graph), WithOptions(opts))
}

func (n *graphNode) finish(result any, err error) {
	n.mu.Lock()
	n.done = true
	n.result = result
	n.err = err
	n.mu.Unlock()
	n.graph.wakeDriver()
}

// lastNamedSegment picks the rightmost field-name segment of a path,
// skipping wildcard and index segments.
func lastNamedSegment(path string) string {
	segs := pathutil.Split(path)
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == pathutil.Wildcard {
			continue
		}
		if _, err := strconv.Atoi(segs[i]); err == nil {
			continue
		}
		return segs[i]
	}
	return segs[0]
}
