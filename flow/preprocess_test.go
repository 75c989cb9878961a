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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessDoesNotMutateUserDeclaration(t *testing.T) {
	params := map[string]any{"amt": "inputs.x", "factor": 3}
	def := GraphDef{
		{"name": "t", "type": KindTransform, "fn": "mult", "params": params},
	}
	_, err := New(def)
	require.NoError(t, err)

	// The user's mapping is untouched; normalization happened on a clone.
	assert.Equal(t, map[string]any{"amt": "inputs.x", "factor": 3}, params)
	_, stillRaw := def[0]["params"].(map[string]any)
	assert.True(t, stillRaw)
}

func TestPreprocessAppendsAliasNodes(t *testing.T) {
	g, err := New(GraphDef{
		{"name": "origin", "type": KindStatic, "value": 1, "aliases": "twin"},
	})
	require.NoError(t, err)

	twin := g.Node("twin")
	require.NotNil(t, twin)
	assert.Equal(t, KindAlias, twin.Kind())

	mirror, ok := declPathDef(twin.Decl(), fieldMirror)
	require.True(t, ok)
	assert.Equal(t, "origin", mirror[0].Path)
}

func TestPreprocessInjectsInputsNode(t *testing.T) {
	g, err := New(GraphDef{
		{"name": "v", "type": KindStatic, "value": 1},
	})
	require.NoError(t, err)
	in := g.Node("inputs")
	require.NotNil(t, in)
	assert.Equal(t, KindInputs, in.Kind())
}

func TestPreprocessNormalizesPathDefs(t *testing.T) {
	g, err := New(GraphDef{
		{"name": "a", "type": KindStatic, "value": 1},
		{"name": "t", "type": KindTransform, "fn": "addN",
			"params": []any{"a", "inputs.x"}},
	})
	require.NoError(t, err)

	pd, ok := declPathDef(g.Node("t").Decl(), fieldParams)
	require.True(t, ok)
	assert.Equal(t, PathDef{
		{Key: "a", Path: "a"},
		{Key: "inputs.x", Path: "inputs.x"},
	}, pd)
}

func TestPreprocessHoistsNonStringLiterals(t *testing.T) {
	g, err := New(GraphDef{
		{"name": "t", "type": KindTransform, "fn": "addN",
			"params": map[string]any{
				"base":  "inputs.x",
				"bonus": 10,
				"tag":   "no-node-here",
			}},
	})
	require.NoError(t, err)

	bonus := g.Node("#literal#t#bonus")
	require.NotNil(t, bonus)
	assert.Equal(t, 10, bonus.Decl()[fieldValue])

	tag := g.Node("#literal#t#tag")
	require.NotNil(t, tag)
	assert.Equal(t, "no-node-here", tag.Decl()[fieldValue])
}

func TestExpectedInputNames(t *testing.T) {
	g, err := New(GraphDef{
		{"name": "a", "type": KindAlias, "mirror": "inputs.first"},
		{"name": "e", "type": KindEcho, "inputName": "second"},
		{"name": "t", "type": KindTransform, "fn": "addN",
			"params": []any{"inputs.third.deep", "a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, g.expectedInputNames())
}
