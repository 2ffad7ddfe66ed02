// Package scanner finds textual candidate occurrences of an identifier
// inside a search scope. It is the cheapest stage of the query funnel:
// pure byte search plus a word-boundary check, no parsing. Everything it
// emits is a candidate, never an answer; over-approximation here is fine,
// a miss is not.
package scanner

import (
	"bytes"
	"context"
	"iter"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/errors"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

type Scanner struct {
	ws       *workspace.Workspace
	provider *workspace.Provider
	workers  int
	trigram  *TrigramIndex
	onSkip   func(error)
}

type Option func(*Scanner)

// WithWorkers enables parallel file scanning. Zero or one keeps the scan
// sequential. Emission order is unaffected: results always stream in
// ascending FileID order, ascending offset within a file.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > runtime.NumCPU() {
			n = runtime.NumCPU()
		}
		s.workers = n
	}
}

// WithTrigramIndex installs the optional in-memory accelerator. Scopes are
// pruned to files whose trigram sets cover the identifier before any
// content is re-read.
func WithTrigramIndex(idx *TrigramIndex) Option {
	return func(s *Scanner) { s.trigram = idx }
}

// WithSkipHandler registers a sink for per-file scan failures. A failed
// file is skipped, never fatal.
func WithSkipHandler(fn func(error)) Option {
	return func(s *Scanner) { s.onSkip = fn }
}

func New(ws *workspace.Workspace, provider *workspace.Provider, opts ...Option) *Scanner {
	s := &Scanner{ws: ws, provider: provider, onSkip: func(error) {}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan streams candidate positions of identifier across the scope. The
// sequence is lazy: no file is read until the consumer pulls into it, and
// abandoning the sequence stops further reads. Context cancellation is
// checked between files.
func (s *Scanner) Scan(ctx context.Context, scope types.SearchScope, identifier string) iter.Seq[types.Position] {
	files := s.candidates(scope, identifier)
	debug.LogScan("scan %q over %d files (workers=%d)", identifier, len(files), s.workers)

	if s.workers > 1 && len(files) > 1 {
		return s.scanParallel(ctx, files, identifier)
	}
	return s.scanSequential(ctx, files, identifier)
}

// candidates materializes the scope in FileID order and applies the
// trigram prefilter when available.
func (s *Scanner) candidates(scope types.SearchScope, identifier string) []types.FileID {
	var files []types.FileID
	if scope.IsEntire() {
		files = s.ws.AllFiles()
	} else {
		files = scope.Files()
	}
	if s.trigram != nil {
		files = s.trigram.Prune(files, identifier, s.readForIndex)
	}
	return files
}

func (s *Scanner) readForIndex(id types.FileID) []byte {
	content, err := s.provider.Read(id)
	if err != nil {
		return nil
	}
	return content
}

func (s *Scanner) scanSequential(ctx context.Context, files []types.FileID, identifier string) iter.Seq[types.Position] {
	return func(yield func(types.Position) bool) {
		for _, id := range files {
			if ctx.Err() != nil {
				return
			}
			for _, pos := range s.scanFile(id, identifier) {
				if !yield(pos) {
					return
				}
			}
		}
	}
}

// scanParallel fans file scanning out over a bounded worker group while
// keeping the emission order identical to the sequential path: the
// consumer drains per-file slots in FileID order.
func (s *Scanner) scanParallel(ctx context.Context, files []types.FileID, identifier string) iter.Seq[types.Position] {
	return func(yield func(types.Position) bool) {
		ctx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)

		// The spawner must be joined before g.Wait: errgroup forbids Go
		// calls after Wait has returned.
		spawned := make(chan struct{})
		defer func() {
			cancel()
			<-spawned
			_ = g.Wait()
		}()

		slots := make([]chan []types.Position, len(files))
		for i := range slots {
			slots[i] = make(chan []types.Position, 1)
		}

		go func() {
			defer close(spawned)
			for i, id := range files {
				if gctx.Err() != nil {
					return
				}
				slot, file := slots[i], id
				g.Go(func() error {
					if gctx.Err() != nil {
						slot <- nil
						return nil
					}
					slot <- s.scanFile(file, identifier)
					return nil
				})
			}
		}()

		for i := range slots {
			var positions []types.Position
			select {
			case positions = <-slots[i]:
			case <-ctx.Done():
				return
			}
			for _, pos := range positions {
				if !yield(pos) {
					return
				}
			}
		}
	}
}

func (s *Scanner) scanFile(id types.FileID, identifier string) []types.Position {
	content, err := s.provider.Read(id)
	if err != nil {
		s.onSkip(errors.NewScanError("read", err).
			WithFile(id, s.ws.PathOf(id)).
			WithRecoverable(true))
		return nil
	}
	return AppendMatches(nil, id, content, identifier)
}

// AppendMatches appends every word-boundary occurrence of identifier in
// content, in ascending offset order. The boundary check uses the raw
// bytes on both sides of the match; an identifier character there means
// the hit is a substring of a longer name and is discarded immediately
// instead of surviving to the parse stage.
func AppendMatches(dst []types.Position, id types.FileID, content []byte, identifier string) []types.Position {
	pattern := []byte(identifier)
	if len(pattern) == 0 || len(content) == 0 {
		return dst
	}

	offset := 0
	for {
		idx := bytes.Index(content[offset:], pattern)
		if idx < 0 {
			return dst
		}
		start := offset + idx
		end := start + len(pattern)

		boundary := true
		if start > 0 && isWordChar(content[start-1]) {
			boundary = false
		}
		if end < len(content) && isWordChar(content[end]) {
			boundary = false
		}
		if boundary {
			dst = append(dst, types.Position{File: id, Offset: uint32(start)})
		}
		offset = start + 1
	}
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') || b == '_'
}
