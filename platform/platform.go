// Package platform defines the search-platform port and the factory
// that maps a platform tag to a concrete searcher.
package platform

import (
	"context"
	"fmt"
	"sync"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
)

// Input carries everything a searcher needs for one task.
type Input struct {
	Index      int
	Keyword    domain.Keyword
	Targets    []string
	OutputDir  string
	CaptureAll bool
}

// Searcher performs one keyword lookup on a platform and reports which
// target posts rank inside the inspected window.
type Searcher interface {
	Search(ctx context.Context, in Input) (domain.SearchResult, error)
}

// Constructor builds a searcher. The factory calls it once per platform
// tag and caches the result.
type Constructor func() (Searcher, error)

// Factory resolves platform tags to searchers.
type Factory struct {
	mu           sync.Mutex
	constructors map[domain.Platform]Constructor
	cache        map[domain.Platform]Searcher
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{
		constructors: make(map[domain.Platform]Constructor),
		cache:        make(map[domain.Platform]Searcher),
	}
}

// Register binds a constructor to a platform tag. The last registration
// for a tag wins.
func (f *Factory) Register(p domain.Platform, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[p] = c
	delete(f.cache, p)
}

// Has reports whether a constructor is registered for the tag.
func (f *Factory) Has(p domain.Platform) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.constructors[p]
	return ok
}

// Searcher returns the searcher for the given tag, constructing it on
// first use. Unknown tags return reporter.ErrUnknownPlatform.
func (f *Factory) Searcher(p domain.Platform) (Searcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.cache[p]; ok {
		return s, nil
	}
	c, ok := f.constructors[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", reporter.ErrUnknownPlatform, p)
	}
	s, err := c()
	if err != nil {
		return nil, fmt.Errorf("platform: construct %q searcher: %w", p, err)
	}
	f.cache[p] = s
	return s, nil
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, in Input) (domain.SearchResult, error)

// Search calls fn.
func (fn SearcherFunc) Search(ctx context.Context, in Input) (domain.SearchResult, error) {
	return fn(ctx, in)
}
