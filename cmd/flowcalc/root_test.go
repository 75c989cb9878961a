//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvaluateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "main.json", `[
		// Comments are fine: definitions are JSONC.
		{"name": "greeting", "type": "static", "value": "hello, "},
		{"name": "message", "type": "transform", "fn": "concat",
		 "params": ["greeting", "inputs.who"]}
	]`)
	inputsPath := writeFile(t, dir, "inputs.json", `{"who": "world"}`)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--graph-definitions", defPath,
		"--inputs", inputsPath,
	})
	require.NoError(t, cmd.Execute())

	var state map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &state))
	assert.Equal(t, "hello, world", state["message"])
	assert.Equal(t, "hello, ", state["greeting"])
}

func TestEvaluateWithYAMLInputsAndTemplate(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "main.json", `[
		{"name": "result", "type": "graph", "graphDef": "mapItem",
		 "collectionMode": "map", "inputs": "inputs.items.*"}
	]`)
	tmplPath := writeFile(t, dir, "mapItem.json", `[
		{"name": "foo", "type": "transform", "fn": "mult",
		 "params": {"amt": "inputs.item.bar", "factor": 5}}
	]`)
	inputsPath := writeFile(t, dir, "inputs.yaml", "items:\n  - bar: 2\n  - bar: 3\n")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--graph-definitions", defPath,
		"--templates", tmplPath,
		"--inputs", inputsPath,
	})
	require.NoError(t, cmd.Execute())

	var state map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &state))
	assert.Equal(t, []any{
		map[string]any{"foo": 10.0},
		map[string]any{"foo": 15.0},
	}, state["result"])
}

func TestEvaluateBadDefinitionExitsWithError(t *testing.T) {
	dir := t.TempDir()
	defPath := writeFile(t, dir, "bad.json", `[{"name": "x", "type": "warp"}]`)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--graph-definitions", defPath})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node kind")
}

func TestGraphName(t *testing.T) {
	assert.Equal(t, "main", graphName("/tmp/defs/main.json"))
	assert.Equal(t, "mapItem", graphName("mapItem.json"))
}
