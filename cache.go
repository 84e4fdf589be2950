package jsonpath

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize bounds the token and compiled-script caches when the
// caller does not override it via WithCacheSize. The cache is a pure
// function of its key (expression text, or backend-tag+source for
// programs) per the spec's determinism invariant, so bounding it only
// affects memory, never results.
const DefaultCacheSize = 512

// pathCache memoizes compilePath by expression text, scoped to a single
// Engine rather than a package-level global, per the spec's guidance
// against process-wide singletons.
type pathCache struct {
	tokens  *lru.Cache
	program *lru.Cache
}

func newPathCache(size int) *pathCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	tokens, _ := lru.New(size)
	program, _ := lru.New(size)
	return &pathCache{tokens: tokens, program: program}
}

func (c *pathCache) compile(expr string) ([]step, error) {
	if v, ok := c.tokens.Get(expr); ok {
		return v.([]step), nil
	}
	steps, err := compilePath(expr)
	if err != nil {
		return nil, err
	}
	c.tokens.Add(expr, steps)
	return steps, nil
}

func (c *pathCache) compileProgram(key string, compile func() (Program, error)) (Program, error) {
	if v, ok := c.program.Get(key); ok {
		return v.(Program), nil
	}
	prog, err := compile()
	if err != nil {
		return nil, err
	}
	c.program.Add(key, prog)
	return prog, nil
}
