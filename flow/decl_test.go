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

func TestParseGraphDef(t *testing.T) {
	data := []byte(`[
		{"name": "s", "type": "static", "value": "hello"},
		{"name": "t", "type": "transform", "fn": "concat", "params": ["s", "inputs.x"]}
	]`)
	def, err := ParseGraphDef(data)
	require.NoError(t, err)
	require.Len(t, def, 2)
	assert.Equal(t, "s", def[0].Name())
	assert.Equal(t, KindStatic, def[0].Kind())
	assert.Equal(t, "concat", def[1].str(fieldFn))

	_, err = ParseGraphDef([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestNormalizeRawShapes(t *testing.T) {
	// Single string: the path doubles as the key.
	entries, err := normalizeRaw("inputs.x")
	require.NoError(t, err)
	assert.Equal(t, []rawEntry{{Key: "inputs.x", Value: "inputs.x"}}, entries)

	// Sequence: element order is preserved, non-strings key by index.
	entries, err = normalizeRaw([]any{"a", 7, "b"})
	require.NoError(t, err)
	assert.Equal(t, []rawEntry{
		{Key: "a", Value: "a"},
		{Key: "1", Value: 7},
		{Key: "b", Value: "b"},
	}, entries)

	// Mapping: keys iterate sorted.
	entries, err = normalizeRaw(map[string]any{"z": "n1", "a": "n2"})
	require.NoError(t, err)
	assert.Equal(t, []rawEntry{
		{Key: "a", Value: "n2"},
		{Key: "z", Value: "n1"},
	}, entries)

	_, err = normalizeRaw(42)
	assert.Error(t, err)
}

func TestDeclAliases(t *testing.T) {
	assert.Equal(t, []string{"one"}, NodeDecl{"aliases": "one"}.Aliases())
	assert.Equal(t, []string{"a", "b"}, NodeDecl{"aliases": []any{"a", "b"}}.Aliases())
	assert.Nil(t, NodeDecl{}.Aliases())
}

func TestDeclClone(t *testing.T) {
	d := NodeDecl{
		"name":   "x",
		"type":   KindStatic,
		"value":  map[string]any{"nested": []any{1, 2}},
		"params": map[string]any{"amt": "inputs.v"},
	}
	c := d.clone()
	c["value"].(map[string]any)["nested"].([]any)[0] = 99
	assert.Equal(t, 1, d["value"].(map[string]any)["nested"].([]any)[0],
		"clone must not share nested containers")
}
