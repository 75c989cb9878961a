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
	"encoding/json"
	"fmt"
	"sort"
)

// Node kinds. The set is closed; declarations naming anything else fail
// construction with ErrUnknownNodeKind.
const (
	// KindStatic holds a literal value forever.
	KindStatic = "static"
	// KindComments carries annotation text; a no-op at evaluation time.
	KindComments = "comments"
	// KindAlias mirrors the value at another path.
	KindAlias = "alias"
	// KindEcho mirrors a top-level input, defaulting to its own name.
	KindEcho = "echo"
	// KindDereference looks up object[propName] dynamically.
	KindDereference = "dereference"
	// KindTransform applies a registered function to resolved params.
	KindTransform = "transform"
	// KindInputs is the synthesized mutable input mapping.
	KindInputs = "inputs"
	// KindAsync takes its value from a deferred once it completes.
	KindAsync = "async"
	// KindBranch selects among nodes by comparing cases against a test.
	KindBranch = "branch"
	// KindGraph embeds a child graph.
	KindGraph = "graph"
)

// Declaration field keys.
const (
	fieldName           = "name"
	fieldType           = "type"
	fieldAliases        = "aliases"
	fieldComments       = "comments"
	fieldIsHidden       = "isHidden"
	fieldValue          = "value"
	fieldMirror         = "mirror"
	fieldInputName      = "inputName"
	fieldObjectPath     = "objectPath"
	fieldPropNamePath   = "propNamePath"
	fieldFn             = "fn"
	fieldParams         = "params"
	fieldPromise        = "promise"
	fieldTest           = "test"
	fieldCases          = "cases"
	fieldNodeNames      = "nodeNames"
	fieldGraphDef       = "graphDef"
	fieldInputs         = "inputs"
	fieldCollectionMode = "collectionMode"
	fieldIsTemplate     = "isTemplate"
)

const (
	// inputsNodeName is the reserved name of the synthesized inputs node.
	inputsNodeName = "inputs"
	// hiddenPrefix marks synthetic nodes excluded from output state.
	hiddenPrefix = "#"
	// literalPrefix names hoisted literal nodes: #literal#<owner>#<key>.
	literalPrefix = "#literal#"
	// templatePlaceholder is the fixed value of template graph nodes.
	templatePlaceholder = "#template#"
	// defaultCaseMarker selects a branch's fallback case.
	defaultCaseMarker = "_default_"
	// CollectionModeMap instantiates a subgraph template per element of
	// its collection input.
	CollectionModeMap = "map"
	// mapItemInputName is the per-element input key in map mode.
	mapItemInputName = "item"
	// mapCollectionInputName is the collection input key in map mode.
	mapCollectionInputName = "collection"
)

// NodeDecl is a single node declaration as supplied by the user. It stays
// a generic mapping so preprocessing can rewrite path-bearing fields
// uniformly.
type NodeDecl map[string]any

// GraphDef is an ordered sequence of node declarations.
type GraphDef []NodeDecl

// ParseGraphDef decodes a JSON graph definition.
func ParseGraphDef(data []byte) (GraphDef, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse graph definition: %w", err)
	}
	def := make(GraphDef, 0, len(raw))
	for _, m := range raw {
		def = append(def, NodeDecl(m))
	}
	return def, nil
}

// Name returns the declared node name.
func (d NodeDecl) Name() string {
	return d.str(fieldName)
}

// Kind returns the declared node type.
func (d NodeDecl) Kind() string {
	return d.str(fieldType)
}

// Hidden reports the isHidden flag.
func (d NodeDecl) Hidden() bool {
	return d.boolField(fieldIsHidden)
}

// IsTemplate reports the isTemplate flag.
func (d NodeDecl) IsTemplate() bool {
	return d.boolField(fieldIsTemplate)
}

// Aliases returns the declared aliases, accepting a single string or a
// sequence of strings.
func (d NodeDecl) Aliases() []string {
	switch a := d[fieldAliases].(type) {
	case string:
		return []string{a}
	case []any:
		out := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return a
	default:
		return nil
	}
}

func (d NodeDecl) str(key string) string {
	s, _ := d[key].(string)
	return s
}

func (d NodeDecl) boolField(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// clone deep-copies the declaration so user data is never mutated.
// Deferreds and other opaque values pass through by reference.
func (d NodeDecl) clone() NodeDecl {
	out := make(NodeDecl, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func (def GraphDef) clone() GraphDef {
	out := make(GraphDef, 0, len(def))
	for _, d := range def {
		out = append(out, d.clone())
	}
	return out
}

// asGraphDef coerces the shapes a graphDef field may carry after JSON
// decoding or programmatic construction.
func asGraphDef(v any) (GraphDef, bool) {
	switch def := v.(type) {
	case GraphDef:
		return def, true
	case []NodeDecl:
		return GraphDef(def), true
	case []any:
		out := make(GraphDef, 0, len(def))
		for _, el := range def {
			switch m := el.(type) {
			case map[string]any:
				out = append(out, NodeDecl(m))
			case NodeDecl:
				out = append(out, m)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// pathField describes one path-bearing declaration field.
type pathField struct {
	// hasSubproperties marks fields holding a keyed set of paths rather
	// than a single path.
	hasSubproperties bool
}

// pathFieldsFor is the per-kind descriptor of path-bearing fields, used
// for literal hoisting, expected-input scanning, and edge derivation.
func pathFieldsFor(kind string) map[string]pathField {
	switch kind {
	case KindAlias:
		return map[string]pathField{fieldMirror: {}}
	case KindDereference:
		return map[string]pathField{fieldObjectPath: {}, fieldPropNamePath: {}}
	case KindTransform:
		return map[string]pathField{fieldParams: {hasSubproperties: true}}
	case KindBranch:
		return map[string]pathField{fieldTest: {}, fieldNodeNames: {hasSubproperties: true}}
	case KindGraph:
		return map[string]pathField{fieldInputs: {hasSubproperties: true}}
	default:
		return nil
	}
}

// PathEntry is one (local key, path) pair of a normalized path definition.
type PathEntry struct {
	Key  string
	Path string
}

// PathDef is a normalized path definition with declaration order
// preserved.
type PathDef []PathEntry

// Get returns the path bound to key.
func (pd PathDef) Get(key string) (string, bool) {
	for _, e := range pd {
		if e.Key == key {
			return e.Path, true
		}
	}
	return "", false
}

// rawEntry is a pre-hoist path definition entry; Value may be any literal.
type rawEntry struct {
	Key   string
	Value any
}

// normalizeRaw expands the three accepted pathdef shapes into ordered
// (key, value) pairs: a single string (key = value), a sequence (keys are
// the elements, indices for non-strings), or a mapping. Mapping keys
// iterate sorted so normalization is deterministic; order-sensitive
// transforms should use the sequence shape.
func normalizeRaw(raw any) ([]rawEntry, error) {
	switch v := raw.(type) {
	case string:
		return []rawEntry{{Key: v, Value: v}}, nil
	case []any:
		out := make([]rawEntry, 0, len(v))
		for i, el := range v {
			key, ok := el.(string)
			if !ok {
				key = fmt.Sprintf("%d", i)
			}
			out = append(out, rawEntry{Key: key, Value: el})
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]rawEntry, 0, len(v))
		for _, k := range keys {
			out = append(out, rawEntry{Key: k, Value: v[k]})
		}
		return out, nil
	case PathDef:
		out := make([]rawEntry, 0, len(v))
		for _, e := range v {
			out = append(out, rawEntry{Key: e.Key, Value: e.Path})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("path definition must be a string, sequence, or mapping, got %T", raw)
	}
}
