//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package flow

import "time"

// Options controls graph output shaping and diagnostics.
type Options struct {
	// EchoInputs includes the inputs node's values in output state.
	EchoInputs bool
	// EchoTemplates includes template subgraph nodes in output.
	EchoTemplates bool
	// EchoIntermediates includes '#'-prefixed synthetic nodes in output.
	EchoIntermediates bool
	// LogUndefinedPaths logs unresolved paths on each step.
	LogUndefinedPaths bool
	// LogLiterals logs whenever a string field is interpreted as a
	// literal rather than a node reference.
	LogLiterals bool
	// Depth is the nesting level, used to indent log output. Child
	// graphs run at the parent's depth plus one.
	Depth int
	// RunTimeout bounds a single run; zero means no timeout. Expiry
	// surfaces ErrSyncRunTimeout.
	RunTimeout time.Duration
}

type graphConfig struct {
	name    string
	parent  *Graph
	options Options
}

// Option configures a Graph under construction.
type Option func(*graphConfig)

// WithName sets the graph's name.
func WithName(name string) Option {
	return func(cfg *graphConfig) {
		cfg.name = name
	}
}

// WithParent attaches the graph to a supergraph. Used by subgraph nodes;
// the parent link is non-owning and serves name lookup only.
func WithParent(parent *Graph) Option {
	return func(cfg *graphConfig) {
		cfg.parent = parent
	}
}

// WithOptions replaces the full options record.
func WithOptions(options Options) Option {
	return func(cfg *graphConfig) {
		cfg.options = options
	}
}

// WithRunTimeout sets the per-run timeout.
func WithRunTimeout(d time.Duration) Option {
	return func(cfg *graphConfig) {
		cfg.options.RunTimeout = d
	}
}
