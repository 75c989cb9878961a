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
	"sync"
)

// asyncNode takes its value from a user-supplied deferred once it
// completes. The deferred is observed when a run starts.
type asyncNode struct {
	baseNode
	deferred *Deferred

	mu       sync.Mutex
	started  bool
	resolved bool
	value    any
	err      error
}

func newAsyncNode(g *Graph, decl NodeDecl) (DNode, error) {
	d, ok := decl[fieldPromise].(*Deferred)
	if !ok || d == nil {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("async requires a promise")}
	}
	return &asyncNode{baseNode: newBase(g, decl), deferred: d}, nil
}

func (n *asyncNode) start(ctx context.Context) {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	go func() {
		v, err := n.deferred.Await(ctx)
		n.mu.Lock()
		n.resolved = true
		n.value = v
		n.err = err
		n.mu.Unlock()
		n.graph.wakeDriver()
	}()
}

func (n *asyncNode) compute(*evalPass) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.resolved {
		return Absent, nil
	}
	if n.err != nil {
		return nil, n.err
	}
	return n.value, nil
}
