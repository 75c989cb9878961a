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
)

// Errors.
var (
	// ErrUnknownNodeKind is returned when a declaration names a node type
	// outside the closed kind set.
	ErrUnknownNodeKind = errors.New("unknown node kind")
	// ErrSyncRunTimeout is returned when a run's timeout elapses before
	// every visible node has a value.
	ErrSyncRunTimeout = errors.New("run timed out before reaching fixpoint")
	// ErrNoMatchingCase is returned when a branch matches neither a case
	// nor a '_default_' entry.
	ErrNoMatchingCase = errors.New("branch matched no case and has no '_default_'")
)

// DeclarationError reports an invalid node declaration: unknown kind,
// missing required field, name collision, or an input name colliding with
// a non-echo node.
type DeclarationError struct {
	Node string
	Err  error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("declaration of node %q: %v", e.Node, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }

// MissingInputError reports a run invoked without a required top-level
// input.
type MissingInputError struct {
	Name string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input %q", e.Name)
}

// ResolutionError reports a subgraph reference that matched neither a
// node nor a pass-through input.
type ResolutionError struct {
	Graph string
	Ref   string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("graph %q: could not find node or pass-through input for %q", e.Graph, e.Ref)
}

// PathError reports an invalid path read: multiple wildcards or a
// wildcard over a non-sequence. A write through a missing intermediate
// (pathutil.Set) returns a plain error and is not reported as a PathError.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// TransformError reports a transform function failure.
type TransformError struct {
	Node string
	Fn   string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %q (fn %s): %v", e.Node, e.Fn, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
