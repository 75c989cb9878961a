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
	"fmt"
	"strconv"

	"trpc.group/trpc-go/trpc-flow-go/flow/internal/pathutil"
)

// dereferenceNode computes object[propName] once both parents resolve.
// A lookup that misses on resolved parents yields concrete nil, so the
// node reads as resolved rather than still waiting.
type dereferenceNode struct {
	baseNode
	objectPath   string
	propNamePath string
}

func newDereferenceNode(g *Graph, decl NodeDecl) (DNode, error) {
	objPD, okObj := declPathDef(decl, fieldObjectPath)
	propPD, okProp := declPathDef(decl, fieldPropNamePath)
	if !okObj || len(objPD) == 0 || !okProp || len(propPD) == 0 {
		return nil, &DeclarationError{
			Node: decl.Name(),
			Err:  errors.New("dereference requires objectPath and propNamePath"),
		}
	}
	return &dereferenceNode{
		baseNode:     newBase(g, decl),
		objectPath:   objPD[0].Path,
		propNamePath: propPD[0].Path,
	}, nil
}

// requireNode enforces the dereference contract that both referenced
// nodes exist: a dangling reference is a read-time error, not Absent.
func (n *dereferenceNode) requireNode(path string) error {
	nodeID, _ := pathutil.SplitNodePath(path)
	if n.graph.node(nodeID) == nil {
		return fmt.Errorf("dereference %q: node %q does not exist", n.name, nodeID)
	}
	return nil
}

func (n *dereferenceNode) compute(p *evalPass) (any, error) {
	if err := n.requireNode(n.objectPath); err != nil {
		return nil, err
	}
	if err := n.requireNode(n.propNamePath); err != nil {
		return nil, err
	}
	obj, err := p.graphValueAt(n.graph, n.objectPath)
	if err != nil {
		return nil, err
	}
	prop, err := p.graphValueAt(n.graph, n.propNamePath)
	if err != nil {
		return nil, err
	}
	if IsAbsent(obj) || IsAbsent(prop) {
		return Absent, nil
	}
	key, err := propKey(prop)
	if err != nil {
		return nil, fmt.Errorf("dereference %q: %w", n.name, err)
	}
	v := pathutil.Get(obj, pathutil.EscapeSegment(key))
	if IsAbsent(v) {
		return nil, nil
	}
	return v, nil
}

// propKey renders the resolved property name as a path segment. Numeric
// props index sequences.
func propKey(prop any) (string, error) {
	switch k := prop.(type) {
	case string:
		return k, nil
	case float64:
		return strconv.Itoa(int(k)), nil
	case int:
		return strconv.Itoa(k), nil
	default:
		return "", fmt.Errorf("property name must be a string or number, got %T", prop)
	}
}
