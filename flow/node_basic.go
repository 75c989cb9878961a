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

	"trpc.group/trpc-go/trpc-flow-go/flow/internal/pathutil"
)

// staticNode holds a literal value forever.
type staticNode struct {
	baseNode
	value any
}

func newStaticNode(g *Graph, decl NodeDecl) (DNode, error) {
	return &staticNode{baseNode: newBase(g, decl), value: decl[fieldValue]}, nil
}

func (n *staticNode) compute(*evalPass) (any, error) {
	return n.value, nil
}

// commentsNode carries its comments field; a no-op at evaluation time.
type commentsNode struct {
	baseNode
}

func newCommentsNode(g *Graph, decl NodeDecl) (DNode, error) {
	return &commentsNode{baseNode: newBase(g, decl)}, nil
}

func (n *commentsNode) compute(*evalPass) (any, error) {
	return n.decl[fieldComments], nil
}

// aliasNode mirrors the current value at another path.
type aliasNode struct {
	baseNode
	mirror string
}

func newAliasNode(g *Graph, decl NodeDecl) (DNode, error) {
	pd, ok := declPathDef(decl, fieldMirror)
	if !ok || len(pd) == 0 {
		return nil, &DeclarationError{Node: decl.Name(), Err: errors.New("alias requires a mirror path")}
	}
	return &aliasNode{baseNode: newBase(g, decl), mirror: pd[0].Path}, nil
}

func (n *aliasNode) compute(p *evalPass) (any, error) {
	return p.graphValueAt(n.graph, n.mirror)
}

// echoNode mirrors a top-level input. It is the only kind permitted to
// share a name with an input.
type echoNode struct {
	baseNode
	inputPath string
}

func newEchoNode(g *Graph, decl NodeDecl) (DNode, error) {
	inputName := decl.str(fieldInputName)
	if inputName == "" {
		inputName = decl.Name()
	}
	path := inputsNodeName + "." + pathutil.EscapeSegment(inputName)
	return &echoNode{baseNode: newBase(g, decl), inputPath: path}, nil
}

func (n *echoNode) inputName() string {
	_, valuePath := pathutil.SplitNodePath(n.inputPath)
	return pathutil.Split(valuePath)[0]
}

func (n *echoNode) compute(p *evalPass) (any, error) {
	return p.graphValueAt(n.graph, n.inputPath)
}
