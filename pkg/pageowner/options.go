package pageowner

import (
	"errors"

	"github.com/patrickmn/go-cache"
)

type Op struct {
	slabFunctions []string
	lineCache     *cache.Cache
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	if op.slabFunctions == nil {
		op.slabFunctions = DefaultSlabFunctions
	}
	for _, fn := range op.slabFunctions {
		if fn == "" {
			return errors.New("empty slab function name")
		}
	}
	if op.lineCache == nil {
		op.lineCache = cache.New(cache.NoExpiration, 0)
	}

	return nil
}

// WithSlabFunctions overrides the function names that mark an allocation as slab.
// The last call wins.
func WithSlabFunctions(fns ...string) OpOption {
	return func(op *Op) {
		op.slabFunctions = append([]string{}, fns...)
	}
}

// WithLineCache shares a trace-line classification cache across parsers
// of the same invocation.
func WithLineCache(c *cache.Cache) OpOption {
	return func(op *Op) {
		op.lineCache = c
	}
}
