// Package scope turns a definition's visibility into the set of files a
// usage of it can possibly appear in. The scanner never reads a file
// outside this set, which is what makes local and module-private queries
// cheap regardless of workspace size.
package scope

import (
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

type Computer struct {
	ws *workspace.Workspace

	testOnce sync.Once
	testSet  map[types.FileID]struct{}
}

func NewComputer(ws *workspace.Workspace) *Computer {
	return &Computer{ws: ws}
}

// ScopeFor computes the files to scan for usages of def under the given
// restriction. An empty result is valid: the definition's visibility and
// the restriction simply do not overlap.
func (c *Computer) ScopeFor(def types.Definition, r types.Restriction) types.SearchScope {
	base := c.visibilityScope(def)

	switch r.Kind {
	case types.RestrictSingleFile:
		base = base.Intersect(types.ScopeOf(r.File))
	case types.RestrictExcludeTests:
		base = base.Intersect(c.nonTestScope())
	}

	debug.LogScope("scope for %s %s: %s restriction, %d files (entire=%v)",
		def.Kind, def.Name, r.Kind, base.Len(), base.IsEntire())
	return base
}

// visibilityScope maps visibility to a file set. Locals and parameters
// never escape their file no matter what the language's export rules say.
func (c *Computer) visibilityScope(def types.Definition) types.SearchScope {
	if def.Kind.IsLocal() {
		return types.ScopeOf(def.Pos.File)
	}
	switch def.Visibility {
	case types.VisibilityPrivate:
		dir := c.ws.ModuleOf(def.Pos.File)
		return types.ScopeOf(c.ws.ModuleFiles(dir)...)
	case types.VisibilityPackage:
		root := c.ws.SourceRootOf(def.Pos.File)
		return types.ScopeOf(c.ws.FilesUnder(root)...)
	default:
		return types.EntireWorkspace()
	}
}

// nonTestScope is every workspace file that does not look like a test
// file. Built once per Computer; the underlying file table is immutable.
func (c *Computer) nonTestScope() types.SearchScope {
	c.testOnce.Do(func() {
		patterns := config.TestFileExclusions()
		c.testSet = make(map[types.FileID]struct{})
		for _, id := range c.ws.AllFiles() {
			path := c.ws.PathOf(id)
			for _, p := range patterns {
				if ok, _ := doublestar.Match(p, path); ok {
					c.testSet[id] = struct{}{}
					break
				}
			}
		}
	})

	keep := make([]types.FileID, 0, c.ws.Len())
	for _, id := range c.ws.AllFiles() {
		if _, isTest := c.testSet[id]; !isTest {
			keep = append(keep, id)
		}
	}
	return types.ScopeOf(keep...)
}

// Materialize expands the whole-workspace marker into the explicit file
// list so callers can iterate in FileID order.
func (c *Computer) Materialize(s types.SearchScope) []types.FileID {
	if s.IsEntire() {
		return c.ws.AllFiles()
	}
	return s.Files()
}
