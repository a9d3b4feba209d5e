// Package earthengine is a small client for the Earth Engine REST API.
//
// Computations are described with typed builders (Image, ImageCollection,
// FeatureCollection, Filter, Reducer) that produce a serialized expression
// graph. Nothing is evaluated locally: the graph is posted to the remote engine
// which returns scalar results, feature collections or map ids.
package earthengine

import (
	"encoding/json"
	"sort"
	"strconv"
)

type valueKind int

const (
	kindConstant valueKind = iota
	kindInvocation
	kindArgument
	kindFunction
	kindArray
	kindDictionary
)

// Value is a node of a computation graph.
type Value struct {
	kind     valueKind
	constant any
	function string
	args     map[string]*Value
	ref      string
	params   []string
	body     *Value
	items    []*Value
	entries  map[string]*Value
}

// Constant wraps a JSON-encodable literal (number, string, bool or nil).
func Constant(v any) *Value {
	return &Value{kind: kindConstant, constant: v}
}

// Invoke calls a named server-side algorithm. Nil arguments are omitted.
func Invoke(function string, args map[string]*Value) *Value {
	return &Value{kind: kindInvocation, function: function, args: args}
}

// Argument references a parameter of an enclosing function definition.
func Argument(name string) *Value {
	return &Value{kind: kindArgument, ref: name}
}

// Function defines a server-side lambda with the given parameter names.
func Function(params []string, body *Value) *Value {
	return &Value{kind: kindFunction, params: params, body: body}
}

// Array builds an array value.
func Array(items ...*Value) *Value {
	return &Value{kind: kindArray, items: items}
}

// Strings builds an array of string constants.
func Strings(ss ...string) *Value {
	items := make([]*Value, len(ss))
	for i, s := range ss {
		items[i] = Constant(s)
	}
	return Array(items...)
}

// Dictionary builds a dictionary value.
func Dictionary(entries map[string]*Value) *Value {
	return &Value{kind: kindDictionary, entries: entries}
}

// Function returns the invoked algorithm name, or "" for other node kinds.
func (v *Value) Function() string {
	if v.kind != kindInvocation {
		return ""
	}
	return v.function
}

// Arg returns the named argument of an invocation.
func (v *Value) Arg(name string) *Value {
	if v == nil || v.args == nil {
		return nil
	}
	return v.args[name]
}

// ConstantValue returns the literal held by a constant node.
func (v *Value) ConstantValue() any {
	return v.constant
}

// Expression is the wire form of a computation graph. Values holds the root
// under Result, every function body and every closed subgraph referenced more
// than once, each under its own key.
type Expression struct {
	Result string                     `json:"result"`
	Values map[string]json.RawMessage `json:"values"`
}

// Encode serializes the graph rooted at v.
func Encode(v *Value) (*Expression, error) {
	e := &encoder{
		values: make(map[string]json.RawMessage),
		refs:   make(map[*Value]int),
		free:   make(map[*Value]map[string]struct{}),
		keys:   make(map[*Value]string),
	}
	e.scan(v)
	key, err := e.add(v)
	if err != nil {
		return nil, err
	}
	return &Expression{Result: key, Values: e.values}, nil
}

type encoder struct {
	values map[string]json.RawMessage
	next   int

	refs map[*Value]int
	free map[*Value]map[string]struct{}
	keys map[*Value]string
}

func (v *Value) children() []*Value {
	var out []*Value
	for _, a := range v.args {
		if a != nil {
			out = append(out, a)
		}
	}
	if v.body != nil {
		out = append(out, v.body)
	}
	out = append(out, v.items...)
	for _, en := range v.entries {
		if en != nil {
			out = append(out, en)
		}
	}
	return out
}

// scan counts references to each node and records the argument names it
// uses without binding them.
func (e *encoder) scan(v *Value) map[string]struct{} {
	e.refs[v]++
	if free, seen := e.free[v]; seen {
		return free
	}

	free := make(map[string]struct{})
	switch v.kind {
	case kindArgument:
		free[v.ref] = struct{}{}
	case kindFunction:
		for name := range e.scan(v.body) {
			free[name] = struct{}{}
		}
		for _, p := range v.params {
			delete(free, p)
		}
	default:
		for _, c := range v.children() {
			for name := range e.scan(c) {
				free[name] = struct{}{}
			}
		}
	}
	e.free[v] = free
	return free
}

// shared reports whether v is emitted once under its own key.
func (e *encoder) shared(v *Value) bool {
	if v.kind == kindConstant || v.kind == kindArgument {
		return false
	}
	return e.refs[v] > 1 && len(e.free[v]) == 0
}

func (e *encoder) add(v *Value) (string, error) {
	key := strconv.Itoa(e.next)
	e.next++
	node, err := e.encodeNode(v)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return "", err
	}
	e.values[key] = raw
	return key, nil
}

func (e *encoder) encode(v *Value) (map[string]any, error) {
	if !e.shared(v) {
		return e.encodeNode(v)
	}
	key, ok := e.keys[v]
	if !ok {
		var err error
		if key, err = e.add(v); err != nil {
			return nil, err
		}
		e.keys[v] = key
	}
	return map[string]any{"valueReference": key}, nil
}

func (e *encoder) encodeNode(v *Value) (map[string]any, error) {
	switch v.kind {
	case kindConstant:
		return map[string]any{"constantValue": v.constant}, nil
	case kindArgument:
		return map[string]any{"argumentReference": v.ref}, nil
	case kindFunction:
		body, err := e.add(v.body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"functionDefinitionValue": map[string]any{
			"argumentNames": v.params,
			"body":          body,
		}}, nil
	case kindArray:
		items := make([]map[string]any, 0, len(v.items))
		for _, item := range v.items {
			n, err := e.encode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, n)
		}
		return map[string]any{"arrayValue": map[string]any{"values": items}}, nil
	case kindDictionary:
		entries, err := e.encodeMap(v.entries)
		if err != nil {
			return nil, err
		}
		return map[string]any{"dictionaryValue": map[string]any{"values": entries}}, nil
	default:
		args, err := e.encodeMap(v.args)
		if err != nil {
			return nil, err
		}
		return map[string]any{"functionInvocationValue": map[string]any{
			"functionName": v.function,
			"arguments":    args,
		}}, nil
	}
}

func (e *encoder) encodeMap(m map[string]*Value) (map[string]any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// values are numbered in traversal order
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		arg := m[k]
		if arg == nil {
			continue
		}
		n, err := e.encode(arg)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}
