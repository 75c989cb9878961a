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

	"trpc.group/trpc-go/trpc-flow-go/transform"
)

// transformNode applies a registered function once every param resolves.
type transformNode struct {
	baseNode
	fnName string
	fn     transform.Func
	params PathDef
}

func newTransformNode(g *Graph, decl NodeDecl) (DNode, error) {
	fnName := decl.str(fieldFn)
	if fnName == "" {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("transform requires fn")}
	}
	fn, err := transform.MustLookup(fnName)
	if err != nil {
		return nil, &DeclarationError{Node: decl.Name(), Err: err}
	}
	params, ok := declPathDef(decl, fieldParams)
	if !ok {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("transform requires params")}
	}
	return &transformNode{
		baseNode: newBase(g, decl),
		fnName:   fnName,
		fn:       fn,
		params:   params,
	}, nil
}

func (n *transformNode) compute(p *evalPass) (any, error) {
	entries, ok, err := p.resolveEntries(n.graph, n.params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Absent, nil
	}
	args := transform.NewArgs()
	for _, e := range entries {
		args.Set(e.Key, e.Value)
	}
	out, err := n.fn(args)
	if err != nil {
		return nil, &TransformError{Node: n.name, Fn: n.fnName, Err: err}
	}
	return out, nil
}
