package resolver

import (
	"sync"

	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

// moduleTable memoizes per-file top-level definitions and assembles them
// into directory, source-root and workspace views on demand. Entries
// survive across queries until the watcher invalidates them.
type moduleTable struct {
	view     *syntax.View
	ws       *workspace.Workspace
	provider *workspace.Provider

	mu    sync.RWMutex
	files map[types.FileID][]types.Definition
}

func newModuleTable(view *syntax.View, ws *workspace.Workspace, provider *workspace.Provider) *moduleTable {
	return &moduleTable{
		view:     view,
		ws:       ws,
		provider: provider,
		files:    make(map[types.FileID][]types.Definition),
	}
}

// lookup finds name among the top-level definitions of the given directory
// module, requiring at least minVis. Files are tried in FileID order, which
// is lexicographic path order.
func (t *moduleTable) lookup(dir, name string, minVis types.Visibility) (types.Definition, bool) {
	return t.lookupIn(t.ws.ModuleFiles(dir), name, minVis)
}

// lookupUnder is lookup over every file below dir, recursively.
func (t *moduleTable) lookupUnder(dir, name string, minVis types.Visibility) (types.Definition, bool) {
	return t.lookupIn(t.ws.FilesUnder(dir), name, minVis)
}

func (t *moduleTable) lookupIn(ids []types.FileID, name string, minVis types.Visibility) (types.Definition, bool) {
	for _, id := range ids {
		for _, d := range t.topLevel(id) {
			if d.Name == name && d.Visibility >= minVis {
				return d, true
			}
		}
	}
	return types.Definition{}, false
}

// topLevel returns the memoized top-level definitions of a file, computing
// them on first use. Unparseable files memoize as empty so a broken file
// costs one parse attempt, not one per candidate.
func (t *moduleTable) topLevel(id types.FileID) []types.Definition {
	t.mu.RLock()
	defs, ok := t.files[id]
	t.mu.RUnlock()
	if ok {
		return defs
	}

	defs = t.extract(id)
	t.mu.Lock()
	t.files[id] = defs
	t.mu.Unlock()
	return defs
}

func (t *moduleTable) extract(id types.FileID) []types.Definition {
	path := t.ws.PathOf(id)
	content, err := t.provider.Read(id)
	if err != nil {
		debug.LogResolve("module table: skip unreadable %s: %v", path, err)
		return nil
	}

	// Plain JavaScript gets a pure-Go fast path that avoids the CGO parser
	// entirely; it bails out on module syntax it cannot represent.
	if syntax.LanguageForPath(path) == syntax.LangJavaScript {
		if defs, ok := jsTopLevel(id, content); ok {
			return defs
		}
	}

	pf, err := t.view.Parse(id, path, content)
	if err != nil {
		debug.LogResolve("module table: skip unparseable %s: %v", path, err)
		return nil
	}
	defer pf.Close()
	return topLevelDefinitions(pf)
}

// topLevelDefinitions collects the bindings declared directly at file scope.
func topLevelDefinitions(pf *syntax.ParsedFile) []types.Definition {
	root := pf.Root()
	if root == nil {
		return nil
	}
	var defs []types.Definition
	for _, d := range collectScopeBindings(pf, root) {
		defs = append(defs, classifyTopLevel(pf, d))
	}
	return defs
}

// invalidate drops memoized entries for changed files.
func (t *moduleTable) invalidate(ids []types.FileID) {
	t.mu.Lock()
	for _, id := range ids {
		delete(t.files, id)
	}
	t.mu.Unlock()
}
