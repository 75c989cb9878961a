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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubgraphMap(t *testing.T) {
	def := GraphDef{
		{"name": "mapItem", "type": KindGraph, "isTemplate": true,
			"graphDef": []any{
				map[string]any{
					"name": "foo", "type": KindTransform, "fn": "mult",
					"params": map[string]any{"amt": "inputs.item.bar", "factor": 5},
				},
			}},
		{"name": "result", "type": KindGraph,
			"graphDef":       "mapItem",
			"collectionMode": "map",
			"inputs":         "inputs.itemsToBeMapped.*"},
	}

	state := runGraph(t, def, map[string]any{
		"itemsToBeMapped": []any{
			map[string]any{"bar": 2},
			map[string]any{"bar": 3},
			map[string]any{"bar": 5},
		},
	})

	assert.Equal(t, []any{
		map[string]any{"foo": 10.0},
		map[string]any{"foo": 15.0},
		map[string]any{"foo": 25.0},
	}, state["result"])

	// The template node itself stays out of the output.
	_, ok := state["mapItem"]
	assert.False(t, ok)
}

func TestSubgraphMapPreservesOrderAndLength(t *testing.T) {
	items := make([]any, 20)
	for i := range items {
		items[i] = map[string]any{"bar": i}
	}
	def := GraphDef{
		{"name": "tmpl", "type": KindGraph, "isTemplate": true,
			"graphDef": []any{
				map[string]any{
					"name": "foo", "type": KindTransform, "fn": "mult",
					"params": map[string]any{"amt": "inputs.item.bar", "factor": 2},
				},
			}},
		{"name": "out", "type": KindGraph,
			"graphDef":       "tmpl",
			"collectionMode": "map",
			"inputs":         "inputs.items.*"},
	}
	state := runGraph(t, def, map[string]any{"items": items})

	results, ok := state["out"].([]any)
	require.True(t, ok)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, map[string]any{"foo": float64(2 * i)}, r, "element %d out of order", i)
	}
}

func TestSubgraphMapNonSequenceFails(t *testing.T) {
	def := GraphDef{
		{"name": "tmpl", "type": KindGraph, "isTemplate": true,
			"graphDef": []any{
				map[string]any{
					"name": "foo", "type": KindTransform, "fn": "mult",
					"params": map[string]any{"amt": "inputs.item.bar", "factor": 2},
				},
			}},
		{"name": "out", "type": KindGraph,
			"graphDef":       "tmpl",
			"collectionMode": "map",
			"inputs":         "inputs.notASequence"},
	}
	g, err := New(def)
	require.NoError(t, err)
	_, err = g.Run(context.Background(), map[string]any{"notASequence": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a sequence")
}

func TestSubgraphDefaultMode(t *testing.T) {
	def := GraphDef{
		{"name": "base", "type": KindStatic, "value": 10},
		{"name": "child", "type": KindGraph,
			"graphDef": []any{
				map[string]any{
					"name": "doubled", "type": KindTransform, "fn": "mult",
					"params": map[string]any{"amt": "inputs.base", "factor": 2},
				},
			}},
	}
	// The child's inputs.base reference resolves against the parent's
	// node of the same name.
	state := runGraph(t, def, map[string]any{})
	assert.Equal(t, map[string]any{"doubled": 20.0}, state["child"])
}

func TestSubgraphPassThroughRootInputs(t *testing.T) {
	def := GraphDef{
		{"name": "child", "type": KindGraph,
			"graphDef": []any{
				map[string]any{
					"name": "tripled", "type": KindTransform, "fn": "mult",
					"params": map[string]any{"amt": "inputs.rate", "factor": 3},
				},
			}},
	}
	state := runGraph(t, def, map[string]any{"rate": 4})
	assert.Equal(t, map[string]any{"tripled": 12.0}, state["child"])
}

func TestSubgraphExplicitInputs(t *testing.T) {
	def := GraphDef{
		{"name": "source", "type": KindStatic, "value": map[string]any{"v": 6}},
		{"name": "divisorFeed", "type": KindStatic, "value": 2},
		{"name": "child", "type": KindGraph,
			"inputs": map[string]any{"amount": "source.v", "divisor": "divisorFeed"},
			"graphDef": []any{
				map[string]any{
					"name": "halved", "type": KindTransform, "fn": "div",
					"params": []any{"inputs.amount", "inputs.divisor"},
				},
				map[string]any{
					"name": "divisorEcho", "type": KindEcho, "inputName": "divisor",
				},
			}},
	}
	state := runGraph(t, def, map[string]any{})
	got, ok := state["child"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3.0, got["halved"])
	assert.Equal(t, 2, got["divisorEcho"])
}

func TestSubgraphMissingTemplate(t *testing.T) {
	def := GraphDef{
		{"name": "out", "type": KindGraph, "graphDef": "ghostTemplate"},
	}
	_, err := New(def)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "ghostTemplate", resErr.Ref)
}

func TestSubgraphPassThroughUnresolvableFails(t *testing.T) {
	def := GraphDef{
		{"name": "child", "type": KindGraph,
			"graphDef": []any{
				map[string]any{
					"name": "x", "type": KindTransform, "fn": "mult",
					"params": map[string]any{"amt": "inputs.nowhere", "factor": 2},
				},
			}},
	}
	g, err := New(def)
	require.NoError(t, err)
	// "nowhere" matches no parent node and no expected input anywhere.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = g.Run(ctx, map[string]any{})
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "nowhere", resErr.Ref)
}

func TestTemplateVisibleWithEchoTemplates(t *testing.T) {
	def := GraphDef{
		{"name": "tmpl", "type": KindGraph, "isTemplate": true,
			"graphDef": []any{
				map[string]any{"name": "x", "type": KindStatic, "value": 1},
			}},
		{"name": "plain", "type": KindStatic, "value": 1},
	}
	state := runGraph(t, def, map[string]any{},
		WithOptions(Options{EchoTemplates: true}))
	assert.Equal(t, templatePlaceholder, state["tmpl"])
}

func TestNestedSubgraphTemplateFromAncestor(t *testing.T) {
	def := GraphDef{
		{"name": "leafTmpl", "type": KindGraph, "isTemplate": true,
			"graphDef": []any{
				map[string]any{
					"name": "plusOne", "type": KindTransform, "fn": "addFactor",
					"params": map[string]any{"amt": "inputs.n", "factor": 1},
				},
			}},
		{"name": "mid", "type": KindGraph,
			"graphDef": []any{
				map[string]any{
					"name": "inner", "type": KindGraph, "graphDef": "leafTmpl",
				},
			}},
	}
	// The inner subgraph resolves leafTmpl by walking up to the root
	// graph, and inputs.n passes through two levels.
	state := runGraph(t, def, map[string]any{"n": 41})
	got, ok := state["mid"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"plusOne": 42.0}, got["inner"])
}
