// Package usages implements the find-usages funnel: textual candidates
// from the scanner are verified one at a time by parsing their file,
// classifying the covering node and resolving it back to a definition.
// A candidate survives only when it resolves to the exact queried
// definition by declaring position, never by name equality alone.
package usages

import (
	"context"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/scanner"
	"github.com/standardbeagle/reflens/internal/scope"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

// Resolver is the semantic half of verification. The shipped
// implementation is internal/resolver's lexical bottom-up resolver.
type Resolver interface {
	DefinitionAt(pf *syntax.ParsedFile, offset uint32) (types.Definition, bool, error)
	Matches(pf *syntax.ParsedFile, node *tree_sitter.Node, target types.Definition) bool
	EnclosingDefinitions(pf *syntax.ParsedFile, offset uint32) []types.Definition
}

// Options tune a single query.
type Options struct {
	// IncludeDeclaration reports the declaring name token itself as a
	// usage. Off by default.
	IncludeDeclaration bool
}

type Funnel struct {
	ws       *workspace.Workspace
	provider *workspace.Provider
	view     *syntax.View
	res      Resolver
	scopes   *scope.Computer

	workers int
	trigram *scanner.TrigramIndex
}

type FunnelOption func(*Funnel)

// WithWorkers enables parallel candidate scanning.
func WithWorkers(n int) FunnelOption {
	return func(f *Funnel) { f.workers = n }
}

// WithTrigramIndex attaches the optional scan accelerator.
func WithTrigramIndex(idx *scanner.TrigramIndex) FunnelOption {
	return func(f *Funnel) { f.trigram = idx }
}

func NewFunnel(ws *workspace.Workspace, provider *workspace.Provider, view *syntax.View, res Resolver, scopes *scope.Computer, opts ...FunnelOption) *Funnel {
	f := &Funnel{
		ws:       ws,
		provider: provider,
		view:     view,
		res:      res,
		scopes:   scopes,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FindUsages answers "who uses the thing at start". Start may sit on the
// declaring name or on any reference to it; both normalize to the same
// canonical definition. An unresolvable start yields an empty stream with
// a diagnostic, not an error: a query is a question, and "nothing there"
// is an answer.
//
// The stream is lazy. Nothing is scanned until the consumer pulls, and
// stopping early stops all further work. Re-iterating All() re-runs the
// query from scratch.
func (f *Funnel) FindUsages(ctx context.Context, start types.Position, restriction types.Restriction, opts Options) *Stream {
	diags := newDiagnostics()
	seq := func(yield func(types.Usage) bool) {
		// Re-iteration re-runs the query; diagnostics describe the
		// latest run, not the sum of all runs.
		diags.reset()

		cache := syntax.NewParseCache(f.view)
		defer cache.Close()

		v := newVerifier(f, cache, diags)

		target, ok := f.resolveTarget(cache, start, diags)
		if !ok {
			return
		}
		debug.LogResolve("query target: %s", target)

		sc := f.scopes.ScopeFor(target, restriction)
		if sc.IsEmpty() {
			return
		}

		scanOpts := []scanner.Option{scanner.WithSkipHandler(diags.add)}
		if f.workers > 1 {
			scanOpts = append(scanOpts, scanner.WithWorkers(f.workers))
		}
		if f.trigram != nil {
			scanOpts = append(scanOpts, scanner.WithTrigramIndex(f.trigram))
		}
		scn := scanner.New(f.ws, f.provider, scanOpts...)

		for pos := range scn.Scan(ctx, sc, target.Name) {
			usage, verified := v.verify(pos, target, opts.IncludeDeclaration)
			if !verified {
				continue
			}
			if !yield(usage) {
				return
			}
		}
	}
	return &Stream{seq: seq, diags: diags}
}

// resolveTarget normalizes the start position to its canonical definition.
func (f *Funnel) resolveTarget(cache *syntax.ParseCache, start types.Position, diags *diagnostics) (types.Definition, bool) {
	pf, err := cache.Get(start.File, f.ws.PathOf(start.File), func() ([]byte, error) {
		return f.provider.Read(start.File)
	})
	if err != nil {
		diags.add(err)
		return types.Definition{}, false
	}
	target, ok, err := f.res.DefinitionAt(pf, start.Offset)
	if err != nil {
		diags.add(err)
		return types.Definition{}, false
	}
	return target, ok
}
