package jsonpath

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Match is one terminal location produced by the tracer.
type Match struct {
	// Path is the ordered sequence of path components from $ to this match.
	Path []string
	// Value is the JSON value at Path.
	Value interface{}
	// Parent is the value containing Value (nil at the root).
	Parent interface{}
	// ParentProperty is the key (string) or index (int) by which Parent
	// refers to Value (nil at the root).
	ParentProperty interface{}
	// HasArrExpr is true when a multi-match step (wildcard, descendant,
	// slice, union, filter) was traversed to reach this match.
	HasArrExpr bool
	// IsProperty is true when this match was produced by a ~ step, in
	// which case Value holds the property name rather than its value.
	IsProperty bool
}

// ancestor is one link in an immutable chain from a node back to the
// document root. Walking e.g. three links up resolves "^^^" without
// mutating any shared path/value state — each ascent simply follows
// .parent rather than rewriting an active path array in place.
type ancestor struct {
	parent *ancestor
	value  interface{}
	key    interface{} // the property/index that reaches .value from parent.value; nil at root
}

// frame carries the tracer's position: the current value, the path
// components taken to reach it, and the ancestor chain (for ^ and for
// building Parent/ParentProperty).
type frame struct {
	value interface{}
	path  []string
	anc   *ancestor
	multi bool
}

func (f frame) parentValue() interface{} {
	if f.anc == nil || f.anc.parent == nil {
		return nil
	}
	return f.anc.parent.value
}

func (f frame) parentProperty() interface{} {
	if f.anc == nil {
		return nil
	}
	return f.anc.key
}

// grandParentProperty is the key by which the grandparent refers to the
// parent, i.e. @parentProperty in filter/script bindings.
func (f frame) grandParentProperty() interface{} {
	if f.anc == nil || f.anc.parent == nil {
		return nil
	}
	return f.anc.parent.key
}

func (f frame) descend(key interface{}, child interface{}, pathComponent string, multi bool) frame {
	return frame{
		value: child,
		path:  append(append([]string{}, f.path...), pathComponent),
		anc:   &ancestor{parent: f.anc, value: child, key: key},
		multi: f.multi || multi,
	}
}

// trace walks value guided by steps and returns the Match records it
// produces. It is a recursive walker over a compiled step sequence,
// dispatching on each step's kind in turn.
func (e *Engine) trace(ctx context.Context, steps []step, fr frame, depth int) ([]Match, error) {
	select {
	case <-ctx.Done():
		return nil, &Error{Code: ErrCancelled, Message: "context cancelled", Cause: ctx.Err()}
	default:
	}

	if len(steps) == 0 {
		return []Match{{
			Path:           fr.path,
			Value:          fr.value,
			Parent:         fr.parentValue(),
			ParentProperty: fr.parentProperty(),
			HasArrExpr:     fr.multi,
		}}, nil
	}

	s := steps[0]
	rest := steps[1:]

	switch s.kind {
	case stepRoot:
		root := frame{value: fr.value, path: []string{"$"}, anc: &ancestor{value: fr.value}, multi: fr.multi}
		return e.trace(ctx, rest, root, depth)

	case stepChild, stepLiteralProperty:
		return e.traceChild(ctx, s.key, rest, fr, depth)

	case stepWildcard:
		return e.traceWildcard(ctx, rest, fr, depth)

	case stepDescendant:
		return e.traceDescendant(ctx, rest, fr, depth)

	case stepIndex:
		return e.traceIndex(ctx, s.indices[0], rest, fr, depth)

	case stepSlice:
		return e.traceSlice(ctx, s.slice, rest, fr, depth)

	case stepUnion:
		return e.traceUnion(ctx, s, rest, fr, depth)

	case stepParent:
		if fr.anc == nil || fr.anc.parent == nil {
			return nil, nil
		}
		parentFrame := frame{
			value: fr.anc.parent.value,
			path:  fr.path[:len(fr.path)-1],
			anc:   fr.anc.parent,
			multi: fr.multi,
		}
		return e.trace(ctx, rest, parentFrame, depth)

	case stepPropertyName:
		return []Match{{
			Path:           fr.path,
			Value:          fr.parentProperty(),
			Parent:         fr.parentValue(),
			ParentProperty: fr.parentProperty(),
			HasArrExpr:     fr.multi,
			IsProperty:     true,
		}}, nil

	case stepTypePredicate:
		ok, err := e.classify(fr.value, s.key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return e.trace(ctx, rest, fr, depth)

	case stepFilter:
		return e.traceFilter(ctx, s.expr, rest, fr, depth)

	case stepScript:
		return e.traceScript(ctx, s.expr, rest, fr, depth)

	default:
		return nil, &Error{Code: ErrInvalidPath, Message: "unknown step kind"}
	}
}

func (e *Engine) traceChild(ctx context.Context, key string, rest []step, fr frame, depth int) ([]Match, error) {
	switch v := fr.value.(type) {
	case *Object:
		if val, ok := v.Get(key); ok {
			child := fr.descend(key, val, key, false)
			return e.trace(ctx, rest, child, depth)
		}
	case []interface{}:
		if n, err := strconv.Atoi(key); err == nil {
			return e.traceIndex(ctx, n, rest, fr, depth)
		}
	}
	if e.undefinedCallback != nil {
		path := append(append([]string{}, fr.path...), key)
		if synth, ok := e.undefinedCallback(path); ok {
			child := fr.descend(key, synth, key, false)
			return e.trace(ctx, rest, child, depth)
		}
	}
	return nil, nil
}

func (e *Engine) traceWildcard(ctx context.Context, rest []step, fr frame, depth int) ([]Match, error) {
	var out []Match
	switch v := fr.value.(type) {
	case *Object:
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			child := fr.descend(k, val, k, true)
			m, err := e.trace(ctx, rest, child, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	case []interface{}:
		for i, val := range v {
			child := fr.descend(i, val, strconv.Itoa(i), true)
			m, err := e.trace(ctx, rest, child, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	}
	return out, nil
}

func (e *Engine) traceDescendant(ctx context.Context, rest []step, fr frame, depth int) ([]Match, error) {
	if e.maxDepth > 0 && depth > e.maxDepth {
		return nil, &Error{Code: ErrMaxDepthExceeded, Message: "max depth exceeded"}
	}
	fr.multi = true

	var out []Match

	self, err := e.trace(ctx, rest, fr, depth)
	if err != nil {
		return nil, err
	}
	out = append(out, self...)

	descendantSteps := append([]step{{kind: stepDescendant}}, rest...)

	switch v := fr.value.(type) {
	case *Object:
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			child := fr.descend(k, val, k, fr.multi)
			m, err := e.trace(ctx, descendantSteps, child, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	case []interface{}:
		for i, val := range v {
			child := fr.descend(i, val, strconv.Itoa(i), fr.multi)
			m, err := e.trace(ctx, descendantSteps, child, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	}
	return out, nil
}

func (e *Engine) traceIndex(ctx context.Context, idx int, rest []step, fr frame, depth int) ([]Match, error) {
	arr, ok := fr.value.([]interface{})
	if !ok {
		return nil, nil
	}
	i := normalizeIndex(idx, len(arr))
	if i < 0 || i >= len(arr) {
		return nil, nil
	}
	child := fr.descend(i, arr[i], strconv.Itoa(i), fr.multi)
	return e.trace(ctx, rest, child, depth)
}

func (e *Engine) traceSlice(ctx context.Context, slice [3]*int, rest []step, fr frame, depth int) ([]Match, error) {
	arr, ok := fr.value.([]interface{})
	if !ok {
		return nil, nil
	}
	n := len(arr)

	step := 1
	if slice[2] != nil {
		step = *slice[2]
		if step == 0 {
			return nil, &Error{Code: ErrConfiguration, Message: "slice step cannot be zero"}
		}
	}

	var start, end int
	if step > 0 {
		start, end = 0, n
	} else {
		start, end = n-1, -n-1
	}
	if slice[0] != nil {
		start = normalizeIndex(*slice[0], n)
	}
	if slice[1] != nil {
		end = normalizeIndex(*slice[1], n)
	}

	var out []Match
	if step > 0 {
		for i := start; i < end && i < n; i += step {
			if i < 0 {
				continue
			}
			child := fr.descend(i, arr[i], strconv.Itoa(i), true)
			m, err := e.trace(ctx, rest, child, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	} else {
		for i := start; i > end && i >= 0; i += step {
			if i >= n {
				continue
			}
			child := fr.descend(i, arr[i], strconv.Itoa(i), true)
			m, err := e.trace(ctx, rest, child, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	}
	return out, nil
}

func (e *Engine) traceUnion(ctx context.Context, s step, rest []step, fr frame, depth int) ([]Match, error) {
	var out []Match
	if len(s.indices) > 0 {
		for _, idx := range s.indices {
			m, err := e.traceIndex(ctx, idx, rest, frame{value: fr.value, path: fr.path, anc: fr.anc, multi: true}, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
		return out, nil
	}
	for _, key := range s.keys {
		m, err := e.traceChild(ctx, key, rest, frame{value: fr.value, path: fr.path, anc: fr.anc, multi: true}, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	return out, nil
}

var nestedFilterRE = regexp.MustCompile(`\?\(`)

func (e *Engine) traceFilter(ctx context.Context, src string, rest []step, fr frame, depth int) ([]Match, error) {
	if _, ok := e.backend.(disabledBackend); ok {
		return nil, &Error{Code: ErrPolicy, Message: "filter steps are disabled", Source: src}
	}

	nested := nestedFilterRE.MatchString(src) && strings.HasPrefix(strings.TrimSpace(src), "@")

	var out []Match
	probe := func(childFrame frame) (bool, error) {
		if nested {
			subExpr := "$" + strings.TrimSpace(src)[1:]
			subSteps, err := e.cache.compile(subExpr)
			if err != nil {
				return false, err
			}
			sub := frame{value: childFrame.value, path: []string{"$"}, anc: &ancestor{value: childFrame.value}}
			matches, err := e.trace(ctx, subSteps[1:], sub, depth)
			if err != nil {
				return false, err
			}
			return len(matches) > 0, nil
		}
		result, err := e.runExpr(src, childFrame)
		if err != nil {
			if e.ignoreEvalErrors {
				return false, nil
			}
			return false, err
		}
		return truthy(result), nil
	}

	visit := func(key interface{}, val interface{}, pathComponent string) error {
		child := fr.descend(key, val, pathComponent, true)
		ok, err := probe(child)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		m, err := e.trace(ctx, rest, child, depth)
		if err != nil {
			return err
		}
		out = append(out, m...)
		return nil
	}

	switch v := fr.value.(type) {
	case []interface{}:
		for i, val := range v {
			if err := visit(i, val, strconv.Itoa(i)); err != nil {
				return nil, err
			}
		}
	case *Object:
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			if err := visit(k, val, k); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (e *Engine) traceScript(ctx context.Context, src string, rest []step, fr frame, depth int) ([]Match, error) {
	if _, ok := e.backend.(disabledBackend); ok {
		return nil, &Error{Code: ErrPolicy, Message: "script steps are disabled", Source: src}
	}
	result, err := e.runExpr(src, fr)
	if err != nil {
		if e.ignoreEvalErrors {
			return nil, nil
		}
		return nil, err
	}
	dynamicKey := toStepKey(result)
	dynamicSteps := append([]step{{kind: stepChild, key: dynamicKey}}, rest...)
	return e.trace(ctx, dynamicSteps, fr, depth)
}

func (e *Engine) runExpr(src string, fr frame) (interface{}, error) {
	rewritten, usesPath := rewriteExpr(src)
	var pathStr string
	if usesPath {
		pathStr = stepsToPathString(fr.path)
	}
	root := fr.value
	if fr.anc != nil {
		a := fr.anc
		for a.parent != nil {
			a = a.parent
		}
		root = a.value
	}
	bindings := bindingsFor(toPlain(fr.value), fr.parentProperty(), toPlain(fr.parentValue()), fr.grandParentProperty(), toPlain(root), pathStr, usesPath, e.sandbox)

	key := programCacheKey(e.backendTag, rewritten)
	prog, err := e.cache.compileProgram(key, func() (Program, error) { return e.backend.Compile(rewritten) })
	if err != nil {
		return nil, err
	}
	return prog.Run(bindings)
}

func toStepKey(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func normalizeIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}

// classify implements the @t() type predicate test described in the
// spec's tracer dispatch rule 10.
func (e *Engine) classify(v interface{}, kind string) (bool, error) {
	switch kind {
	case "null":
		return v == nil, nil
	case "boolean":
		_, ok := v.(bool)
		return ok, nil
	case "number":
		_, ok := v.(float64)
		return ok, nil
	case "string":
		_, ok := v.(string)
		return ok, nil
	case "integer":
		f, ok := v.(float64)
		return ok && f == float64(int64(f)), nil
	case "nonFinite":
		return false, nil // the decoder only ever produces finite float64s
	case "undefined":
		return v == nil, nil
	case "array":
		_, ok := v.([]interface{})
		return ok, nil
	case "object":
		_, ok := v.(*Object)
		return ok, nil
	case "function":
		return false, nil // the value model has no callable arm
	case "scalar":
		return !isContainer(v), nil
	case "other":
		if e.otherTypeCallback == nil {
			return false, &Error{Code: ErrClassifier, Message: "@other() requires WithOtherTypeCallback"}
		}
		return e.otherTypeCallback(v), nil
	default:
		return false, nil
	}
}

// stepsToPathString renders an already-walked path (not token steps) as
// the canonical bracketed string, for @path bindings.
func stepsToPathString(path []string) string {
	var b strings.Builder
	for i, c := range path {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		if isNumeric(c) {
			b.WriteByte('[')
			b.WriteString(c)
			b.WriteByte(']')
		} else {
			b.WriteString("['")
			b.WriteString(c)
			b.WriteString("']")
		}
	}
	return b.String()
}
