package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/reflens/internal/scanner"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/usages"
	"github.com/standardbeagle/reflens/internal/version"
)

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "find_usages",
		Description: "Find all verified usages of the symbol at a file position. Results are semantic: shadowed names, comments and string mentions are excluded.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file": {
					Type:        "string",
					Description: "Workspace-relative path of the file containing the symbol",
				},
				"offset": {
					Type:        "integer",
					Description: "Byte offset of the symbol inside the file (declaration or any usage)",
				},
				"restriction": {
					Type:        "string",
					Description: "Search scope: 'workspace' (default), 'file' (only the start file), or 'no-tests'",
				},
				"include_declaration": {
					Type:        "boolean",
					Description: "Report the declaring name token as a usage",
				},
			},
			Required: []string{"file", "offset"},
		},
	}, s.handleFindUsages)

	s.server.AddTool(&mcp.Tool{
		Name:        "symbol_search",
		Description: "Fuzzy search over all workspace definitions: exact, prefix, substring, typo-tolerant and word-form matching, ranked.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Symbol name or fragment to search for",
				},
				"max": {
					Type:        "integer",
					Description: "Maximum results (overrides config)",
				},
			},
			Required: []string{"query"},
		},
	}, s.handleSymbolSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "scan_candidates",
		Description: "Raw textual candidates for an identifier before semantic verification. Diagnostic view of the scan stage.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"identifier": {
					Type:        "string",
					Description: "Identifier to scan for, word-boundary matched",
				},
				"file": {
					Type:        "string",
					Description: "Restrict the scan to one workspace-relative file",
				},
			},
			Required: []string{"identifier"},
		},
	}, s.handleScanCandidates)

	s.server.AddTool(&mcp.Tool{
		Name:        "workspace_status",
		Description: "Workspace root, file count, language breakdown and server state.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleWorkspaceStatus)
}

type findUsagesParams struct {
	File               string `json:"file"`
	Offset             uint32 `json:"offset"`
	Restriction        string `json:"restriction"`
	IncludeDeclaration bool   `json:"include_declaration"`
}

func (s *Server) handleFindUsages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params findUsagesParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
	}

	id, ok := s.ws.IDOfAny(params.File)
	if !ok {
		return errorResult(fmt.Errorf("file %q is not in the workspace", params.File)), nil
	}

	restriction := types.Restriction{Kind: types.RestrictWorkspace}
	switch strings.ToLower(params.Restriction) {
	case "", "workspace":
	case "file", "single-file":
		restriction = types.Restriction{Kind: types.RestrictSingleFile, File: id}
	case "no-tests", "exclude-tests":
		restriction = types.Restriction{Kind: types.RestrictExcludeTests}
	default:
		return errorResult(fmt.Errorf("unknown restriction %q", params.Restriction)), nil
	}

	stream := s.funnel.FindUsages(ctx,
		types.Position{File: id, Offset: params.Offset},
		restriction,
		usages.Options{IncludeDeclaration: params.IncludeDeclaration})
	found := stream.Collect()

	type usageJSON struct {
		Path          string `json:"path"`
		Line          int    `json:"line"`
		Column        int    `json:"column"`
		Offset        uint32 `json:"offset"`
		Snippet       string `json:"snippet"`
		Container     string `json:"container,omitempty"`
		IsDeclaration bool   `json:"is_declaration,omitempty"`
	}
	out := struct {
		Usages   []usageJSON `json:"usages"`
		Warnings []string    `json:"warnings,omitempty"`
	}{Usages: make([]usageJSON, 0, len(found))}

	for _, u := range found {
		out.Usages = append(out.Usages, usageJSON{
			Path:          u.Path,
			Line:          u.Line,
			Column:        u.Column,
			Offset:        u.Ref.Pos.Offset,
			Snippet:       u.Snippet,
			Container:     u.Container,
			IsDeclaration: u.IsDeclaration,
		})
	}
	for _, d := range stream.Diagnostics() {
		out.Warnings = append(out.Warnings, d.Error())
	}
	return jsonResult(out)
}

type symbolSearchParams struct {
	Query string `json:"query"`
	Max   int    `json:"max"`
}

func (s *Server) handleSymbolSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params symbolSearchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
	}

	matches, err := s.search.Query(ctx, params.Query)
	if err != nil {
		return errorResult(err), nil
	}
	if params.Max > 0 && len(matches) > params.Max {
		matches = matches[:params.Max]
	}

	type matchJSON struct {
		Name  string  `json:"name"`
		Kind  string  `json:"kind"`
		Path  string  `json:"path"`
		Line  int     `json:"line"`
		Score float64 `json:"score"`
	}
	out := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchJSON{
			Name:  m.Def.Name,
			Kind:  m.Def.Kind.String(),
			Path:  m.Path,
			Line:  m.Line,
			Score: m.Score,
		})
	}
	return jsonResult(out)
}

type scanCandidatesParams struct {
	Identifier string `json:"identifier"`
	File       string `json:"file"`
}

func (s *Server) handleScanCandidates(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params scanCandidatesParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
	}
	if params.Identifier == "" {
		return errorResult(fmt.Errorf("identifier must not be empty")), nil
	}

	sc := types.EntireWorkspace()
	if params.File != "" {
		id, ok := s.ws.IDOfAny(params.File)
		if !ok {
			return errorResult(fmt.Errorf("file %q is not in the workspace", params.File)), nil
		}
		sc = types.ScopeOf(id)
	}

	scn := scanner.New(s.ws, s.provider)
	type candidateJSON struct {
		Path   string `json:"path"`
		Offset uint32 `json:"offset"`
	}
	out := make([]candidateJSON, 0, 16)
	for pos := range scn.Scan(ctx, sc, params.Identifier) {
		out = append(out, candidateJSON{Path: s.ws.PathOf(pos.File), Offset: pos.Offset})
	}
	return jsonResult(out)
}

func (s *Server) handleWorkspaceStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	languages := make(map[string]int)
	for _, id := range s.ws.AllFiles() {
		lang := syntax.LanguageForPath(s.ws.PathOf(id))
		if lang == syntax.LangUnknown {
			continue
		}
		languages[string(lang)]++
	}

	return jsonResult(map[string]interface{}{
		"root":       s.ws.Root(),
		"files":      s.ws.Len(),
		"languages":  languages,
		"watching":   s.watcher != nil,
		"trigram":    s.trigram != nil,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"version":    version.FullInfo(),
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	})
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}
}
