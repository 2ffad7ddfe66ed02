package scanner

import (
	"sync"

	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/types"
)

// TrigramIndex is the optional scan accelerator: a map from byte trigram
// to the set of files containing it. A file can only contain an
// identifier if it contains every trigram of the identifier, so the index
// prunes scan scopes without touching file contents again. It is built
// lazily, file by file, the first time a file enters a pruned scan, and
// lives purely in memory.
type TrigramIndex struct {
	mu      sync.RWMutex
	grams   map[uint32]map[types.FileID]struct{}
	indexed map[types.FileID]struct{}
}

func NewTrigramIndex() *TrigramIndex {
	return &TrigramIndex{
		grams:   make(map[uint32]map[types.FileID]struct{}),
		indexed: make(map[types.FileID]struct{}),
	}
}

func pack(a, b, c byte) uint32 {
	return uint32(a)<<16 | uint32(b)<<8 | uint32(c)
}

// Add indexes a file's content. Re-adding an already indexed file is a
// no-op; use Invalidate first when the content changed.
func (t *TrigramIndex) Add(id types.FileID, content []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, done := t.indexed[id]; done {
		return
	}
	t.indexed[id] = struct{}{}
	for i := 0; i+2 < len(content); i++ {
		g := pack(content[i], content[i+1], content[i+2])
		set, ok := t.grams[g]
		if !ok {
			set = make(map[types.FileID]struct{})
			t.grams[g] = set
		}
		set[id] = struct{}{}
	}
}

// Invalidate forgets a file entirely. The next Prune touching it re-reads
// and re-indexes it.
func (t *TrigramIndex) Invalidate(ids []types.FileID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	drop := make(map[types.FileID]struct{}, len(ids))
	for _, id := range ids {
		delete(t.indexed, id)
		drop[id] = struct{}{}
	}
	for g, set := range t.grams {
		for id := range drop {
			delete(set, id)
		}
		if len(set) == 0 {
			delete(t.grams, g)
		}
	}
}

// Prune filters files down to those that may contain identifier. Files not
// yet indexed are read through the supplied reader and indexed first, so
// the first pruned scan pays the cost that every later scan saves.
// Identifiers shorter than three bytes cannot be pruned and pass through.
func (t *TrigramIndex) Prune(files []types.FileID, identifier string, read func(types.FileID) []byte) []types.FileID {
	if len(identifier) < 3 {
		return files
	}

	for _, id := range files {
		t.mu.RLock()
		_, done := t.indexed[id]
		t.mu.RUnlock()
		if !done {
			t.Add(id, read(id))
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	kept := make([]types.FileID, 0, len(files))
	for _, id := range files {
		if t.containsAll(id, identifier) {
			kept = append(kept, id)
		}
	}
	debug.LogScan("trigram prune: %d of %d files remain for %q", len(kept), len(files), identifier)
	return kept
}

func (t *TrigramIndex) containsAll(id types.FileID, identifier string) bool {
	for i := 0; i+2 < len(identifier); i++ {
		g := pack(identifier[i], identifier[i+1], identifier[i+2])
		set, ok := t.grams[g]
		if !ok {
			return false
		}
		if _, in := set[id]; !in {
			return false
		}
	}
	return true
}
