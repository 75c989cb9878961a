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

	"trpc.group/trpc-go/trpc-flow-go/flow/internal/pathutil"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// preprocess rewrites a cloned declaration into its runtime form:
// alias nodes appended, the inputs node injected, every path-bearing
// field normalized to an ordered PathDef, and literals hoisted into
// synthetic static nodes.
func preprocess(def GraphDef, g *Graph) (GraphDef, error) {
	out := make(GraphDef, 0, len(def)+1)

	// Alias expansion: each alias becomes a sibling alias node mirroring
	// the original.
	for _, d := range def.clone() {
		if d.Name() == inputsNodeName {
			return nil, &DeclarationError{
				Node: d.Name(),
				Err:  errors.New("the inputs node is synthesized; it must not be declared"),
			}
		}
		out = append(out, d)
		for _, alias := range d.Aliases() {
			out = append(out, NodeDecl{
				fieldName:   alias,
				fieldType:   KindAlias,
				fieldMirror: d.Name(),
			})
		}
	}

	out = append(out, NodeDecl{fieldName: inputsNodeName, fieldType: KindInputs})

	names := make(map[string]bool, len(out))
	for _, d := range out {
		if names[d.Name()] {
			return nil, &DeclarationError{Node: d.Name(), Err: errors.New("duplicate node name")}
		}
		names[d.Name()] = true
	}

	// Literal hoisting. Any path-bearing value that is not a string, or
	// is a string whose head names no declared node, moves into a
	// synthetic static node and the field is rewritten to reference it.
	var synthesized GraphDef
	for _, d := range out {
		for field := range pathFieldsFor(d.Kind()) {
			raw, present := d[field]
			if !present || raw == nil {
				continue
			}
			entries, err := normalizeRaw(raw)
			if err != nil {
				return nil, &DeclarationError{Node: d.Name(), Err: fmt.Errorf("field %s: %w", field, err)}
			}
			pd := make(PathDef, 0, len(entries))
			for _, e := range entries {
				if s, ok := e.Value.(string); ok {
					head := pathutil.Split(s)[0]
					if names[head] {
						pd = append(pd, PathEntry{Key: e.Key, Path: s})
						continue
					}
					if g.options.LogLiterals {
						log.Infof("%sgraph %q: %s.%s: %q names no node, treating as literal",
							g.logIndent(), g.name, d.Name(), e.Key, s)
					}
				}
				synthName := literalPrefix + d.Name() + "#" + e.Key
				if !names[synthName] {
					synthesized = append(synthesized, NodeDecl{
						fieldName:  synthName,
						fieldType:  KindStatic,
						fieldValue: e.Value,
					})
					names[synthName] = true
				}
				pd = append(pd, PathEntry{Key: e.Key, Path: pathutil.EscapeSegment(synthName)})
			}
			d[field] = pd
		}
	}

	return append(out, synthesized...), nil
}
