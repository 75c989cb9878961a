//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() map[string]any {
	return map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": []any{
				map[string]any{"amount": 4},
				map[string]any{"amount": 2},
			},
		},
		"s": "hello",
	}
}

func TestSplitNodePath(t *testing.T) {
	tests := []struct {
		path      string
		nodeID    string
		valuePath string
	}{
		{path: "node", nodeID: "node", valuePath: ""},
		{path: "node.a.b", nodeID: "node", valuePath: "a.b"},
		{path: `node.we\.ird.x`, nodeID: "node", valuePath: `we\.ird.x`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			nodeID, valuePath := SplitNodePath(tt.path)
			assert.Equal(t, tt.nodeID, nodeID)
			assert.Equal(t, tt.valuePath, valuePath)
		})
	}
}

func TestGet(t *testing.T) {
	tree := sampleTree()
	assert.Equal(t, 1, Get(tree, "a.b"))
	assert.Equal(t, 4, Get(tree, "a.c.0.amount"))
	assert.Equal(t, "hello", Get(tree, "s"))
	assert.True(t, IsAbsent(Get(tree, "a.missing")))
	assert.True(t, IsAbsent(Get(tree, "a.c.7")))
	assert.True(t, IsAbsent(Get(tree, "s.deeper")))
	assert.Equal(t, tree, Get(tree, ""))
}

func TestSet(t *testing.T) {
	tree := sampleTree()
	require.NoError(t, Set(tree, "a.b", 9))
	assert.Equal(t, 9, Get(tree, "a.b"))

	require.NoError(t, Set(tree, "a.c.1.amount", 5))
	assert.Equal(t, 5, Get(tree, "a.c.1.amount"))

	assert.Error(t, Set(tree, "a.nope.deep", 1))
	assert.Error(t, Set(tree, "a.c.9", 1))
}

func TestGetWildcard(t *testing.T) {
	tree := sampleTree()

	got, err := GetWildcard(tree, "a.c.*.amount")
	require.NoError(t, err)
	assert.Equal(t, []any{4, 2}, got)

	// Terminal wildcard yields the sequence itself.
	got, err = GetWildcard(tree, "a.c.*")
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"amount": 4},
		map[string]any{"amount": 2},
	}, got)

	// No wildcard behaves as Get.
	got, err = GetWildcard(tree, "a.b")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// Absent base propagates rather than failing.
	got, err = GetWildcard(tree, "missing.*.x")
	require.NoError(t, err)
	assert.True(t, IsAbsent(got))

	// Wildcard over a non-sequence fails.
	_, err = GetWildcard(tree, "a.*.x")
	assert.Error(t, err)

	// More than one wildcard fails.
	_, err = GetWildcard(tree, "a.c.*.*")
	assert.ErrorIs(t, err, ErrMultipleWildcards)
}

func TestCollectPaths(t *testing.T) {
	paths := CollectPaths(sampleTree())
	assert.Equal(t, []string{"a.b", "a.c.0.amount", "a.c.1.amount", "s"}, paths)
}

func TestCollectPathsEscapesDots(t *testing.T) {
	tree := map[string]any{"we.ird": map[string]any{"x": 1}}
	paths := CollectPaths(tree)
	require.Equal(t, []string{`we\.ird.x`}, paths)
	assert.Equal(t, 1, Get(tree, paths[0]))
}

func TestFlattenExpandRoundTrip(t *testing.T) {
	tree := sampleTree()
	flat := Flatten(tree)
	assert.Equal(t, map[string]any{
		"a.b":          1,
		"a.c.0.amount": 4,
		"a.c.1.amount": 2,
		"s":            "hello",
	}, flat)

	back := Expand(flat)
	assert.Equal(t, tree, back)

	// And the other direction.
	assert.Equal(t, flat, Flatten(Expand(flat)))
}

func TestFlattenKeep(t *testing.T) {
	flat := Flatten(sampleTree(), func(path string) bool {
		return path != "s"
	})
	_, ok := flat["s"]
	assert.False(t, ok)
	assert.Contains(t, flat, "a.b")
}

func TestExpandBuildsSequences(t *testing.T) {
	got := Expand(map[string]any{
		"items.0.bar": 2,
		"items.1.bar": 3,
		"name":        "x",
	})
	assert.Equal(t, map[string]any{
		"items": []any{
			map[string]any{"bar": 2},
			map[string]any{"bar": 3},
		},
		"name": "x",
	}, got)
}
