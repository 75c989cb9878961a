//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterOn(t *testing.T) {
	em := NewEmitter()
	var got []*Event
	em.On(TypeStepped, func(evt *Event) {
		got = append(got, evt)
	})

	em.Emit(New("g", TypeStepped))
	em.Emit(New("g", TypeStepped))
	em.Emit(New("g", TypeResolved)) // Different type, not delivered.

	require.Len(t, got, 2)
	assert.Equal(t, TypeStepped, got[0].Type)
	assert.Equal(t, "g", got[0].Author)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestEmitterOnce(t *testing.T) {
	em := NewEmitter()
	var count int
	em.Once(TypeResolved, func(*Event) { count++ })

	em.Emit(New("g", TypeResolved))
	em.Emit(New("g", TypeResolved))

	assert.Equal(t, 1, count)
}

func TestEmitterOff(t *testing.T) {
	em := NewEmitter()
	var count int
	sub := em.On(TypeError, func(*Event) { count++ })

	em.Emit(New("g", TypeError))
	em.Off(sub)
	em.Emit(New("g", TypeError))
	em.Off(sub) // Double-off is a no-op.

	assert.Equal(t, 1, count)
}

func TestEmitterRecoversFromPanickingHandler(t *testing.T) {
	em := NewEmitter()
	var after int
	em.On(TypeStepped, func(*Event) { panic("boom") })
	em.On(TypeStepped, func(*Event) { after++ })

	assert.NotPanics(t, func() {
		em.Emit(New("g", TypeStepped))
	})
	assert.Equal(t, 1, after)
}

func TestEventOptions(t *testing.T) {
	evt := New("g", TypeResolved,
		WithPayload(map[string]any{"x": 1}),
		WithInvocationID("inv-1"),
	)
	assert.Equal(t, "inv-1", evt.InvocationID)
	assert.Equal(t, map[string]any{"x": 1}, evt.Payload)
	assert.False(t, evt.Timestamp.IsZero())
}
