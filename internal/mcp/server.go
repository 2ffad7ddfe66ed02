// Package mcp exposes the reference engine over the Model Context
// Protocol on stdio, so editor agents can ask for usages without shelling
// out to the CLI.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/resolver"
	"github.com/standardbeagle/reflens/internal/scanner"
	"github.com/standardbeagle/reflens/internal/scope"
	"github.com/standardbeagle/reflens/internal/symbols"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/usages"
	"github.com/standardbeagle/reflens/internal/version"
	"github.com/standardbeagle/reflens/internal/workspace"
)

type Server struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	provider *workspace.Provider
	view     *syntax.View
	res      *resolver.Resolver
	funnel   *usages.Funnel
	search   *symbols.Search
	trigram  *scanner.TrigramIndex
	prints   *workspace.Fingerprints
	watcher  *workspace.Watcher
	server   *mcp.Server
	started  time.Time
}

// NewServer builds the full engine for the workspace described by cfg and
// registers the tools. Nothing is scanned or parsed yet; the first query
// pays its own way.
func NewServer(cfg *config.Config) (*Server, error) {
	ws, err := workspace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("enumerating workspace: %w", err)
	}

	provider := workspace.NewProvider(ws)
	view := syntax.NewView()
	res := resolver.New(view, ws, provider)
	scopes := scope.NewComputer(ws)

	var funnelOpts []usages.FunnelOption
	var trigram *scanner.TrigramIndex
	if cfg.Scan.TrigramAccel {
		trigram = scanner.NewTrigramIndex()
		funnelOpts = append(funnelOpts, usages.WithTrigramIndex(trigram))
	}
	if w := cfg.EffectiveWorkers(); w > 1 {
		funnelOpts = append(funnelOpts, usages.WithWorkers(w))
	}

	s := &Server{
		cfg:      cfg,
		ws:       ws,
		provider: provider,
		view:     view,
		res:      res,
		funnel:   usages.NewFunnel(ws, provider, view, res, scopes, funnelOpts...),
		search:   symbols.NewSearch(ws, provider, view, res, cfg.Symbols),
		trigram:  trigram,
		prints:   workspace.NewFingerprints(),
		started:  time.Now(),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "reflens",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s, nil
}

// Run serves stdio until the context ends. When watching is enabled the
// resolver's module tables and the trigram index are invalidated on every
// change batch, so long-running sessions never answer from stale files.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Watch.Enabled {
		w, err := workspace.NewWatcher(
			s.ws.Root(),
			time.Duration(s.cfg.Watch.DebounceMs)*time.Millisecond,
			s.onChanges,
		)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			_ = w.Stop()
			return fmt.Errorf("starting watcher: %w", err)
		}
		s.watcher = w
		defer func() { _ = w.Stop() }()
	}

	debug.LogMCP("serving %s (%d files)", s.ws.Root(), s.ws.Len())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) onChanges(changed []string) {
	ids := make([]types.FileID, 0, len(changed))
	for _, rel := range changed {
		id, ok := s.ws.IDOf(rel)
		if !ok {
			continue
		}
		// Editors rewrite files on save without changing content; only a
		// real content change is worth dropping caches for.
		content, err := s.provider.Read(id)
		if err != nil {
			s.prints.Forget(id)
			ids = append(ids, id)
			continue
		}
		if s.prints.Update(id, content) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	debug.LogMCP("invalidating %d changed files", len(ids))
	s.res.Invalidate(ids)
	if s.trigram != nil {
		s.trigram.Invalidate(ids)
	}
}
