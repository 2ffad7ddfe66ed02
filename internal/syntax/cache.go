package syntax

import (
	"github.com/standardbeagle/reflens/internal/types"
)

// ParseCache holds at most one parsed tree per file for the lifetime of a
// single find-usages invocation. It is an explicit context object: the
// funnel creates one per query, passes it down, and closes it when the
// result stream is fully consumed or abandoned. Never shared across queries.
type ParseCache struct {
	view   *View
	files  map[types.FileID]*ParsedFile
	failed map[types.FileID]error
}

// NewParseCache creates an empty cache over view.
func NewParseCache(view *View) *ParseCache {
	return &ParseCache{
		view:   view,
		files:  make(map[types.FileID]*ParsedFile),
		failed: make(map[types.FileID]error),
	}
}

// Get returns the parsed tree for id, parsing on first request via read.
// Both successes and failures are memoized, so a file with many candidates
// is read and parsed exactly once per invocation either way.
func (c *ParseCache) Get(id types.FileID, path string, read func() ([]byte, error)) (*ParsedFile, error) {
	if pf, ok := c.files[id]; ok {
		return pf, nil
	}
	if err, ok := c.failed[id]; ok {
		return nil, err
	}

	content, err := read()
	if err != nil {
		c.failed[id] = err
		return nil, err
	}

	pf, err := c.view.Parse(id, path, content)
	if err != nil {
		c.failed[id] = err
		return nil, err
	}
	c.files[id] = pf
	return pf, nil
}

// Len returns the number of successfully parsed files.
func (c *ParseCache) Len() int { return len(c.files) }

// Close releases every cached tree. The cache must not be used afterwards.
func (c *ParseCache) Close() {
	for _, pf := range c.files {
		pf.Close()
	}
	c.files = nil
	c.failed = nil
}
