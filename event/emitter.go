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
	"sync"

	"trpc.group/trpc-go/trpc-flow-go/log"
)

// Handler receives emitted events. Handlers run synchronously on the
// emitting goroutine; long-running work should be dispatched elsewhere.
type Handler func(*Event)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	typ     Type
	id      int
	handler Handler
	once    bool
}

// Emitter dispatches events to registered handlers. The zero value is not
// usable; create one with NewEmitter.
type Emitter struct {
	mu     sync.Mutex
	nextID int
	subs   map[Type][]*Subscription
}

// NewEmitter creates a new event emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		subs: make(map[Type][]*Subscription),
	}
}

// On registers a handler for the given event type and returns its
// subscription for later removal with Off.
func (em *Emitter) On(typ Type, handler Handler) *Subscription {
	return em.subscribe(typ, handler, false)
}

// Once registers a handler that fires at most once.
func (em *Emitter) Once(typ Type, handler Handler) *Subscription {
	return em.subscribe(typ, handler, true)
}

func (em *Emitter) subscribe(typ Type, handler Handler, once bool) *Subscription {
	if handler == nil {
		return nil
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	em.nextID++
	sub := &Subscription{typ: typ, id: em.nextID, handler: handler, once: once}
	em.subs[typ] = append(em.subs[typ], sub)
	return sub
}

// Off removes a subscription. Removing an already-removed or nil
// subscription is a no-op.
func (em *Emitter) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	em.remove(sub)
}

func (em *Emitter) remove(sub *Subscription) {
	subs := em.subs[sub.typ]
	for i, s := range subs {
		if s.id == sub.id {
			em.subs[sub.typ] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit dispatches the event to every handler registered for its type.
// Panicking handlers are recovered and logged so one subscriber cannot
// break the driver.
func (em *Emitter) Emit(evt *Event) {
	if evt == nil {
		return
	}
	em.mu.Lock()
	subs := em.subs[evt.Type]
	fire := make([]*Subscription, len(subs))
	copy(fire, subs)
	for _, sub := range subs {
		if sub.once {
			em.remove(sub)
		}
	}
	em.mu.Unlock()

	for _, sub := range fire {
		em.dispatch(sub, evt)
	}
}

func (em *Emitter) dispatch(sub *Subscription, evt *Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event: recovered from panic in %s handler: %v", evt.Type, r)
		}
	}()
	sub.handler(evt)
}
