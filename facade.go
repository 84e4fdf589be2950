// Package jsonpath implements a JSONPath query engine: a path compiler
// with a memoizing cache, a recursive tracer that walks a JSON document
// guided by the compiled path, and a pluggable expression backend for
// filter ([?(...)]) and script ([(...)]) steps.
//
// # Basic usage
//
//	data := []byte(`{"store":{"book":[{"title":"Go Programming","price":29.99}]}}`)
//	result, err := jsonpath.Eval(data, "$.store.book[*].title")
//	// result: []interface{}{"Go Programming"}
//
// For repeated use against many documents, compile once:
//
//	p, err := jsonpath.Compile("$.store.book[*].price")
//	values1, _ := p.Eval(doc1)
//	values2, _ := p.Eval(doc2)
package jsonpath

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Engine holds configuration shared across queries: the expression
// backend, the token/program cache, depth limits, logging, and the
// optional callbacks the spec's Configuration options describe.
type Engine struct {
	backend           Backend
	backendTag        string
	cache             *pathCache
	maxDepth          int
	logger            hclog.Logger
	resultType        ResultType
	wrap              *bool
	flatten           bool
	sandbox           map[string]interface{}
	callback          func(value interface{}, kind string, m Match)
	undefinedCallback func(path []string) (interface{}, bool)
	otherTypeCallback func(value interface{}) bool
	ignoreEvalErrors  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackend selects the expression backend used for filter/script steps.
// The default is the safe backend (WithSafeEval).
func WithBackend(b Backend, tag string) Option {
	return func(e *Engine) { e.backend = b; e.backendTag = tag }
}

// WithSafeEval selects the strict, whitelisted expression language
// (github.com/expr-lang/expr). This is the default.
func WithSafeEval() Option { return WithBackend(safeBackend{}, "safe") }

// WithNativeEval selects a host ECMAScript VM (github.com/robertkrimen/otto)
// capable of running arbitrary script, not just the safe sub-language.
func WithNativeEval() Option { return WithBackend(nativeBackend{}, "native") }

// WithEvalDisabled forbids filter/script steps entirely; encountering one
// fails the query with ErrPolicy.
func WithEvalDisabled() Option { return WithBackend(disabledBackend{}, "disabled") }

// WithCallableEval adapts a caller-supplied (source, bindings) -> value
// function as the expression backend.
func WithCallableEval(fn BackendFunc) Option { return WithBackend(fn, "callable") }

// WithMaxDepth bounds descendant (..) recursion. Default 100; 0 disables
// the bound.
func WithMaxDepth(depth int) Option { return func(e *Engine) { e.maxDepth = depth } }

// WithCacheSize bounds the token and compiled-script LRU caches.
func WithCacheSize(size int) Option {
	return func(e *Engine) { e.cache = newPathCache(size) }
}

// WithLogger injects a structured logger; the default is a discarding
// logger (logging is an external collaborator the core never mandates).
func WithLogger(l hclog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithResultType selects the default output shape for Query/Eval.
func WithResultType(rt ResultType) Option { return func(e *Engine) { e.resultType = rt } }

// WithWrap forces single results to be wrapped in a one-element sequence
// (or not). Default true.
func WithWrap(wrap bool) Option { return func(e *Engine) { e.wrap = &wrap } }

// WithFlatten enables one-level flattening of sequence results.
func WithFlatten(flatten bool) Option { return func(e *Engine) { e.flatten = flatten } }

// WithSandbox exposes extra bindings to the expression backend.
func WithSandbox(sandbox map[string]interface{}) Option {
	return func(e *Engine) { e.sandbox = sandbox }
}

// WithCallback registers a per-match callback, invoked once for every
// terminal match with the shaped value, "value"|"property", and the full
// Match record.
func WithCallback(cb func(value interface{}, kind string, m Match)) Option {
	return func(e *Engine) { e.callback = cb }
}

// WithUndefinedCallback synthesizes a value when a missing property is
// addressed, instead of yielding no match.
func WithUndefinedCallback(cb func(path []string) (interface{}, bool)) Option {
	return func(e *Engine) { e.undefinedCallback = cb }
}

// WithOtherTypeCallback supplies the classifier @other() delegates to.
func WithOtherTypeCallback(cb func(value interface{}) bool) Option {
	return func(e *Engine) { e.otherTypeCallback = cb }
}

// WithIgnoreEvalErrors coerces backend compile/run failures to false
// instead of raising them.
func WithIgnoreEvalErrors(ignore bool) Option { return func(e *Engine) { e.ignoreEvalErrors = ignore } }

// NewEngine builds an Engine with the given options applied over the
// defaults: safe backend, max depth 100, a 512-entry cache, a discarding
// logger, resultType "value", wrap=true, flatten=false.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		backend:    safeBackend{},
		backendTag: "safe",
		cache:      newPathCache(DefaultCacheSize),
		maxDepth:   100,
		logger:     hclog.NewNullLogger(),
		resultType: ResultValue,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.wrap == nil {
		t := true
		e.wrap = &t
	}
	return e
}

// Query runs expr against doc and returns the matches shaped per the
// engine's configuration. doc must already be decoded (see Decode), or
// may be a raw []byte / JSON string, in which case it is decoded first.
func (e *Engine) Query(ctx context.Context, doc interface{}, expr string) (interface{}, error) {
	root, err := asValue(doc)
	if err != nil {
		return nil, err
	}
	steps, err := e.cache.compile(expr)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 || steps[0].kind != stepRoot {
		return nil, &Error{Code: ErrConfiguration, Message: "compiled path must start with $"}
	}

	fr := frame{value: root, path: []string{"$"}, anc: &ancestor{value: root}}
	matches, err := e.trace(ctx, steps[1:], fr, 0)
	if err != nil {
		e.logger.Debug("query failed", "expr", expr, "error", err)
		return nil, err
	}
	e.logger.Trace("query completed", "expr", expr, "matches", len(matches))
	return shape(matches, e.resultType, *e.wrap, e.flatten, e.callback), nil
}

// Matches returns the raw Match records for expr against doc, bypassing
// result shaping. Useful for callers that want Path/Parent/ParentProperty
// without string-building every result via Query's resultType option.
func (e *Engine) Matches(ctx context.Context, doc interface{}, expr string) ([]Match, error) {
	root, err := asValue(doc)
	if err != nil {
		return nil, err
	}
	steps, err := e.cache.compile(expr)
	if err != nil {
		return nil, err
	}
	fr := frame{value: root, path: []string{"$"}, anc: &ancestor{value: root}}
	return e.trace(ctx, steps[1:], fr, 0)
}

func asValue(doc interface{}) (interface{}, error) {
	switch v := doc.(type) {
	case []byte:
		return Decode(v)
	case string:
		return Decode([]byte(v))
	default:
		return doc, nil
	}
}

// --- package-level convenience entry points ---

// Query executes expr against a parsed document or raw JSON bytes using a
// fresh default Engine and returns the wrapped (sequence) result.
func Query(doc interface{}, expr string, opts ...Option) (interface{}, error) {
	return NewEngine(opts...).Query(context.Background(), doc, expr)
}

// Eval executes expr against doc with wrap=false: a single non-multi-match
// result is returned unwrapped; otherwise a sequence is returned; no
// matches returns NotFound. This is the scalar-returning entry point the
// spec's Open Question asks for, replacing the constructor-throws-scalar
// trick with an explicit, distinct function.
func Eval(doc interface{}, expr string, opts ...Option) (interface{}, error) {
	opts = append(append([]Option{}, opts...), WithWrap(false))
	return NewEngine(opts...).Query(context.Background(), doc, expr)
}

// CompiledPath is a pre-compiled expression paired with an Engine, for
// repeated use against many documents.
type CompiledPath struct {
	raw    string
	steps  []step
	engine *Engine
}

// Compile parses and validates expr once, returning a CompiledPath for
// reuse. opts configure the Engine used for every subsequent query.
func Compile(expr string, opts ...Option) (*CompiledPath, error) {
	e := NewEngine(opts...)
	steps, err := e.cache.compile(expr)
	if err != nil {
		return nil, err
	}
	return &CompiledPath{raw: expr, steps: steps, engine: e}, nil
}

// String returns the original expression text.
func (cp *CompiledPath) String() string { return cp.raw }

// Query runs the compiled path against doc (wrap=true default, or as
// configured at Compile time).
func (cp *CompiledPath) Query(doc interface{}) (interface{}, error) {
	return cp.QueryContext(context.Background(), doc)
}

// QueryContext is Query with explicit cancellation.
func (cp *CompiledPath) QueryContext(ctx context.Context, doc interface{}) (interface{}, error) {
	root, err := asValue(doc)
	if err != nil {
		return nil, err
	}
	fr := frame{value: root, path: []string{"$"}, anc: &ancestor{value: root}}
	matches, err := cp.engine.trace(ctx, cp.steps[1:], fr, 0)
	if err != nil {
		return nil, err
	}
	return shape(matches, cp.engine.resultType, *cp.engine.wrap, cp.engine.flatten, cp.engine.callback), nil
}

// Eval runs the compiled path with wrap=false.
func (cp *CompiledPath) Eval(doc interface{}) (interface{}, error) {
	root, err := asValue(doc)
	if err != nil {
		return nil, err
	}
	fr := frame{value: root, path: []string{"$"}, anc: &ancestor{value: root}}
	matches, err := cp.engine.trace(context.Background(), cp.steps[1:], fr, 0)
	if err != nil {
		return nil, err
	}
	return shape(matches, cp.engine.resultType, false, cp.engine.flatten, cp.engine.callback), nil
}
