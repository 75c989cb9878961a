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
	"strings"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-flow-go/event"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// Step is the stepped event payload: the snapshot after one non-terminal
// recomputation and the paths still waiting for values.
type Step struct {
	State          State    `json:"state"`
	UndefinedPaths []string `json:"undefinedPaths"`
}

// Run writes the inputs (awaiting any deferreds) and drives the graph to
// fixpoint: whenever a dependency changes, state is recomputed; once no
// visible node is undefined the final state is returned and resolved
// fires. Any evaluation error fires error and fails the run.
//
// Calling Run again on the same instance before a previous run finished
// is undefined; subgraph nodes always instantiate fresh children.
func (g *Graph) Run(ctx context.Context, inputs map[string]any) (State, error) {
	invocationID := uuid.NewString()

	for _, name := range g.expectedInputNames() {
		if _, ok := inputs[name]; !ok {
			return nil, g.fail(invocationID, &MissingInputError{Name: name})
		}
	}

	g.mu.Lock()
	g.runCtx = ctx
	g.runErr = nil
	g.running = true
	g.provided = make(map[string]bool, len(inputs))
	for key := range inputs {
		g.provided[key] = true
	}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
	}()

	if err := g.writeInputs(ctx, inputs); err != nil {
		return nil, g.fail(invocationID, err)
	}

	for _, name := range g.order {
		if s, ok := g.nodes[name].(starter); ok {
			s.start(ctx)
		}
	}

	var timeout <-chan time.Time
	if g.options.RunTimeout > 0 {
		timer := time.NewTimer(g.options.RunTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if err := g.takeRunErr(); err != nil {
			return nil, g.fail(invocationID, err)
		}
		state, err := g.computeState(newEvalPass(), false)
		if err != nil {
			return nil, g.fail(invocationID, err)
		}
		undefined := UndefinedPaths(state)
		if len(undefined) == 0 {
			g.emitter.Emit(event.New(g.name, event.TypeResolved,
				event.WithInvocationID(invocationID),
				event.WithPayload(state)))
			return state, nil
		}
		if g.options.LogUndefinedPaths {
			log.Infof("%sgraph %q: waiting on %s",
				g.logIndent(), g.name, strings.Join(undefined, ", "))
		}
		g.emitter.Emit(event.New(g.name, event.TypeStepped,
			event.WithInvocationID(invocationID),
			event.WithPayload(&Step{State: state, UndefinedPaths: undefined})))

		select {
		case <-g.wake:
		case <-ctx.Done():
			return nil, g.fail(invocationID, ctx.Err())
		case <-timeout:
			return nil, g.fail(invocationID, fmt.Errorf("graph %q: %w", g.name, ErrSyncRunTimeout))
		}
	}
}

// writeInputs places each input into the inputs node. Deferred values get
// a completion handler that writes on resolution or fails the run on
// rejection.
func (g *Graph) writeInputs(ctx context.Context, inputs map[string]any) error {
	for key, value := range inputs {
		if n := g.node(key); n != nil {
			if _, isEcho := n.(*echoNode); !isEcho {
				return &DeclarationError{
					Node: key,
					Err:  errors.New("input name collides with a non-echo node"),
				}
			}
		}
		if d, ok := value.(*Deferred); ok {
			go func(key string, d *Deferred) {
				v, err := d.Await(ctx)
				if err != nil {
					g.failRun(fmt.Errorf("deferred input %q: %w", key, err))
					return
				}
				g.in.setValue(key, v)
			}(key, d)
			continue
		}
		g.in.setValue(key, value)
	}
	return nil
}

// fail logs the error, fires the error event, and hands the error back
// for Run to return.
func (g *Graph) fail(invocationID string, err error) error {
	log.Errorf("%sgraph %q: run failed: %v", g.logIndent(), g.name, err)
	g.emitter.Emit(event.New(g.name, event.TypeError,
		event.WithInvocationID(invocationID),
		event.WithPayload(err)))
	return err
}
