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
	"errors"
	"reflect"
)

// branchNode selects one of nodeNames by comparing cases against the test
// value, falling back to the index of the first '_default_' case.
type branchNode struct {
	baseNode
	testPath  string
	cases     []any
	nodeNames PathDef
}

func newBranchNode(g *Graph, decl NodeDecl) (DNode, error) {
	testPD, ok := declPathDef(decl, fieldTest)
	if !ok || len(testPD) == 0 {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("branch requires test")}
	}
	cases, ok := decl[fieldCases].([]any)
	if !ok || len(cases) == 0 {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("branch requires cases")}
	}
	names, ok := declPathDef(decl, fieldNodeNames)
	if !ok || len(names) == 0 {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("branch requires nodeNames")}
	}
	if len(cases) != len(names) {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("branch cases and nodeNames lengths differ")}
	}
	return &branchNode{
		baseNode:  newBase(g, decl),
		testPath:  testPD[0].Path,
		cases:     cases,
		nodeNames: names,
	}, nil
}

func (n *branchNode) compute(p *evalPass) (any, error) {
	test, err := p.graphValueAt(n.graph, n.testPath)
	if err != nil {
		return nil, err
	}
	if IsAbsent(test) {
		return Absent, nil
	}
	idx := n.selectCase(test)
	if idx < 0 {
		return nil, ErrNoMatchingCase
	}
	return p.graphValueAt(n.graph, n.nodeNames[idx].Path)
}

func (n *branchNode) selectCase(test any) int {
	for i, c := range n.cases {
		if branchEq(c, test) {
			return i
		}
	}
	for i, c := range n.cases {
		if c == defaultCaseMarker {
			return i
		}
	}
	return -1
}

// branchEq compares numbers numerically so a JSON 1 matches an int 1;
// everything else compares deeply.
func branchEq(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if na, ok := asFloat(a); ok {
		if nb, ok := asFloat(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
