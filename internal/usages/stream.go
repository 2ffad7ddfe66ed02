package usages

import (
	"iter"
	"sync"

	"github.com/standardbeagle/reflens/internal/types"
)

// Stream is the lazy result of a query. All() may be ranged over with
// break at any point; nothing past the abandoned element is ever scanned
// or parsed. Diagnostics accumulate while the stream is consumed.
type Stream struct {
	seq   iter.Seq[types.Usage]
	diags *diagnostics
}

// All returns the usage sequence in lexicographic file order, ascending
// offset within a file.
func (s *Stream) All() iter.Seq[types.Usage] {
	return s.seq
}

// Collect drains the stream into a slice.
func (s *Stream) Collect() []types.Usage {
	var out []types.Usage
	for u := range s.seq {
		out = append(out, u)
	}
	return out
}

// Diagnostics returns the non-fatal notices gathered by the most recent
// run of the stream: unreadable files, parse failures, an unresolvable
// start position. A populated
// result list alongside diagnostics means the answer is complete modulo
// the files named in them.
func (s *Stream) Diagnostics() []error {
	return s.diags.snapshot()
}

// diagnostics is a concurrency-safe error collector; the parallel scanner
// appends to it from worker goroutines.
type diagnostics struct {
	mu   sync.Mutex
	errs []error
}

func newDiagnostics() *diagnostics {
	return &diagnostics{}
}

func (d *diagnostics) add(err error) {
	if err == nil {
		return
	}
	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

func (d *diagnostics) reset() {
	d.mu.Lock()
	d.errs = d.errs[:0]
	d.mu.Unlock()
}

func (d *diagnostics) snapshot() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]error, len(d.errs))
	copy(out, d.errs)
	return out
}
