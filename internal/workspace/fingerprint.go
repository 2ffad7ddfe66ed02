package workspace

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/reflens/internal/types"
)

// Fingerprints tracks per-file content hashes between invocations so shared
// caches (the resolver's module tables) can be invalidated only for files
// that actually changed.
type Fingerprints struct {
	mu     sync.RWMutex
	byFile map[types.FileID]uint64
}

// NewFingerprints creates an empty fingerprint table.
func NewFingerprints() *Fingerprints {
	return &Fingerprints{byFile: make(map[types.FileID]uint64)}
}

// Update hashes content and records it for id, reporting whether the content
// differs from the previously recorded hash. The first observation of a file
// counts as changed.
func (f *Fingerprints) Update(id types.FileID, content []byte) bool {
	h := xxhash.Sum64(content)

	f.mu.Lock()
	defer f.mu.Unlock()
	prev, seen := f.byFile[id]
	f.byFile[id] = h
	return !seen || prev != h
}

// Forget drops the recorded hash for id (file deleted or renamed).
func (f *Fingerprints) Forget(id types.FileID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byFile, id)
}

// Has reports whether id has a recorded hash.
func (f *Fingerprints) Has(id types.FileID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.byFile[id]
	return ok
}
