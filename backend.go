package jsonpath

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/robertkrimen/otto"
)

// Program is a compiled filter/script fragment, ready to run repeatedly
// against different binding sets.
type Program interface {
	Run(bindings map[string]interface{}) (interface{}, error)
}

// Backend compiles filter ([?(...)]) and script ([(...)]) source fragments.
// It is the backend the tracer calls out to for filter/script steps; the
// engine never depends on a concrete expression language directly.
type Backend interface {
	Compile(source string) (Program, error)
}

// BackendFunc adapts a plain "compile and run in one shot" function — the
// spec's "custom callable" backend — into a Backend/Program pair. The
// function is re-invoked on every Run; there is no separate compile step,
// which matches a caller that only has a single two-argument function to
// offer.
type BackendFunc func(source string, bindings map[string]interface{}) (interface{}, error)

type funcProgram struct {
	fn     BackendFunc
	source string
}

func (f BackendFunc) Compile(source string) (Program, error) {
	return &funcProgram{fn: f, source: source}, nil
}

func (p *funcProgram) Run(bindings map[string]interface{}) (interface{}, error) {
	return p.fn(p.source, bindings)
}

// disabledBackend rejects every filter/script step, per the spec's
// "disabled" eval option.
type disabledBackend struct{}

func (disabledBackend) Compile(source string) (Program, error) {
	return nil, &Error{Code: ErrPolicy, Message: "filter/script evaluation is disabled", Source: source}
}

// --- safe backend: github.com/expr-lang/expr ---

// safeBackend is the default backend: a strict, whitelisted
// arithmetic/comparison/logical/member-access expression language with no
// access to arbitrary host functions or I/O.
type safeBackend struct{}

type safeProgram struct {
	program *vm.Program
	source  string
}

func (safeBackend) Compile(source string) (Program, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &Error{Code: ErrExpression, Message: "failed to compile filter expression", Cause: err, Source: source}
	}
	return &safeProgram{program: program, source: source}, nil
}

func (p *safeProgram) Run(bindings map[string]interface{}) (interface{}, error) {
	out, err := expr.Run(p.program, bindings)
	if err != nil {
		return nil, &Error{Code: ErrExpression, Message: "filter expression failed", Cause: err, Source: p.source}
	}
	return out, nil
}

// --- native backend: github.com/robertkrimen/otto ---

// nativeBackend delegates to otto, a pure-Go ECMAScript 5 interpreter,
// letting a filter/script fragment run arbitrary host-language code. This
// is strictly more permissive than safeBackend and should only be enabled
// for trusted expressions.
type nativeBackend struct{}

type nativeProgram struct {
	vm     *otto.Otto
	script *otto.Script
	source string
}

func (nativeBackend) Compile(source string) (Program, error) {
	vmInstance := otto.New()
	script, err := vmInstance.Compile("", source)
	if err != nil {
		return nil, &Error{Code: ErrExpression, Message: "failed to compile script", Cause: err, Source: source}
	}
	return &nativeProgram{vm: vmInstance, script: script, source: source}, nil
}

func (p *nativeProgram) Run(bindings map[string]interface{}) (interface{}, error) {
	// Copy the VM so concurrent runs of the same compiled program never
	// share mutable global state, per the spec's concurrency model
	// (distinct queries may run concurrently provided each uses its own
	// bindings object).
	vmInstance := p.vm.Copy()
	for name, val := range bindings {
		if err := vmInstance.Set(name, val); err != nil {
			return nil, &Error{Code: ErrExpression, Message: "failed to bind " + name, Cause: err, Source: p.source}
		}
	}
	result, err := vmInstance.Run(p.script)
	if err != nil {
		return nil, &Error{Code: ErrExpression, Message: "script execution failed", Cause: err, Source: p.source}
	}
	out, err := result.Export()
	if err != nil {
		return nil, &Error{Code: ErrExpression, Message: "failed to export script result", Cause: err, Source: p.source}
	}
	return out, nil
}

// --- @-token rewrite ---

// rewriteExpr textually rewrites JSONPath meta-tokens in a filter/script
// source fragment to the literal binding names the tracer will populate,
// per the table in the spec's Expression Backend section. Order matters:
// longer tokens must be rewritten before their prefixes (@parentProperty
// before @parent, etc). Whatever "@" remains afterward always refers to
// the current value under test, whether it's followed by a member access
// (@.n), an index (@[0]), or nothing at all (a bare scalar comparison
// like @>1), so it is replaced unconditionally.
func rewriteExpr(src string) (out string, usesPath bool) {
	usesPath = strings.Contains(src, "@path")

	replacer := strings.NewReplacer(
		"@parentProperty", "_$_parentProperty",
		"@parent", "_$_parent",
		"@property", "_$_property",
		"@root", "_$_root",
		"@path", "_$_path",
	)
	out = replacer.Replace(src)
	out = strings.ReplaceAll(out, "@", "_$_v")
	return out, usesPath
}

// bindingsFor builds the binding environment the tracer hands to the
// backend for a filter/script step, per the spec's fixed binding names.
func bindingsFor(value, vname, parent, parentProperty, root interface{}, path string, includePath bool, sandbox map[string]interface{}) map[string]interface{} {
	b := make(map[string]interface{}, len(sandbox)+7)
	for k, v := range sandbox {
		b[k] = v
	}
	b["_$_v"] = value
	b["_$_vname"] = vname
	b["_$_property"] = vname
	b["_$_parent"] = parent
	b["_$_parentProperty"] = parentProperty
	b["_$_root"] = root
	if includePath {
		b["_$_path"] = path
	}
	return b
}

// truthy mirrors the JSONPath-Plus filter-truthiness convention: any
// non-nil, non-false, non-zero, non-empty-string value selects the child.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func programCacheKey(backendTag, source string) string {
	return fmt.Sprintf("%s:%s", backendTag, source)
}
