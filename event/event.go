//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package event provides the event system for graph lifecycle notifications.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a graph lifecycle event.
type Type string

const (
	// TypeConstructed fires once all nodes of a graph exist.
	TypeConstructed Type = "constructed"
	// TypeConnected fires once edges have been derived.
	TypeConnected Type = "connected"
	// TypeStepped fires on every non-terminal recomputation.
	TypeStepped Type = "stepped"
	// TypeResolved fires with the final state at fixpoint.
	TypeResolved Type = "resolved"
	// TypeError fires on any error raised inside recomputation.
	TypeError Type = "error"
)

// Event represents a single graph lifecycle notification.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// Type is the lifecycle event type.
	Type Type `json:"type"`

	// Author is the name of the graph that emitted the event.
	Author string `json:"author"`

	// InvocationID identifies the run that produced the event, if any.
	InvocationID string `json:"invocationId,omitempty"`

	// Timestamp is the timestamp of the event.
	Timestamp time.Time `json:"timestamp"`

	// Payload carries type-specific data: the step snapshot for
	// stepped, the final state for resolved, the error for error.
	Payload any `json:"payload,omitempty"`
}

// Option configures a new Event.
type Option func(*Event)

// WithPayload attaches a payload to the event.
func WithPayload(payload any) Option {
	return func(e *Event) {
		e.Payload = payload
	}
}

// WithInvocationID tags the event with a run invocation ID.
func WithInvocationID(invocationID string) Option {
	return func(e *Event) {
		e.InvocationID = invocationID
	}
}

// New creates a new event with a generated ID and the current timestamp.
func New(author string, typ Type, opts ...Option) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Author:    author,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
