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
	"sync"
)

// Deferred is a single-shot eventual value. Inputs may be supplied as
// deferreds; the engine awaits completion and writes the resolved value
// into the inputs node. Completing an already-completed deferred is a
// no-op.
type Deferred struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewDeferred creates an unresolved deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolved creates a deferred already completed with value.
func Resolved(value any) *Deferred {
	d := NewDeferred()
	d.Resolve(value)
	return d
}

// Resolve completes the deferred successfully.
func (d *Deferred) Resolve(value any) {
	d.once.Do(func() {
		d.value = value
		close(d.done)
	})
}

// Reject completes the deferred with an error.
func (d *Deferred) Reject(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

// Done returns a channel closed on completion.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Await blocks until completion or context cancellation.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
