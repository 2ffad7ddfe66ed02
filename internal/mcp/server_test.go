package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/reflens/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Scan.RespectGitignore = false
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func callTool(t *testing.T, s *Server, args any, handler func(context.Context, *sdk.CallToolRequest) (*sdk.CallToolResult, error)) *sdk.CallToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	req := &sdk.CallToolRequest{Params: &sdk.CallToolParamsRaw{Arguments: raw}}
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func textOf(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

const mainGo = `package main

func helper() int { return 1 }

func main() {
	x := helper()
	_ = x
}
`

func TestFindUsagesTool(t *testing.T) {
	s := newTestServer(t, map[string]string{"main.go": mainGo})

	offset := strings.Index(mainGo, "helper")
	res := callTool(t, s, map[string]any{
		"file":   "main.go",
		"offset": offset,
	}, s.handleFindUsages)
	require.False(t, res.IsError)

	var out struct {
		Usages []struct {
			Path    string `json:"path"`
			Line    int    `json:"line"`
			Snippet string `json:"snippet"`
		} `json:"usages"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.Len(t, out.Usages, 1)
	assert.Equal(t, "main.go", out.Usages[0].Path)
	assert.Equal(t, 6, out.Usages[0].Line)
	assert.Contains(t, out.Usages[0].Snippet, "x := helper()")
}

func TestFindUsagesTool_IncludeDeclaration(t *testing.T) {
	s := newTestServer(t, map[string]string{"main.go": mainGo})

	res := callTool(t, s, map[string]any{
		"file":                "main.go",
		"offset":              strings.Index(mainGo, "helper"),
		"include_declaration": true,
	}, s.handleFindUsages)
	require.False(t, res.IsError)

	var out struct {
		Usages []struct {
			IsDeclaration bool `json:"is_declaration"`
		} `json:"usages"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.Len(t, out.Usages, 2)
	assert.True(t, out.Usages[0].IsDeclaration)
	assert.False(t, out.Usages[1].IsDeclaration)
}

func TestFindUsagesTool_BadInput(t *testing.T) {
	s := newTestServer(t, map[string]string{"main.go": mainGo})

	res := callTool(t, s, map[string]any{
		"file":   "missing.go",
		"offset": 0,
	}, s.handleFindUsages)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not in the workspace")

	res = callTool(t, s, map[string]any{
		"file":        "main.go",
		"offset":      0,
		"restriction": "galaxy",
	}, s.handleFindUsages)
	assert.True(t, res.IsError)
}

func TestSymbolSearchTool(t *testing.T) {
	s := newTestServer(t, map[string]string{"main.go": mainGo})

	res := callTool(t, s, map[string]any{"query": "helper"}, s.handleSymbolSearch)
	require.False(t, res.IsError)

	var out []struct {
		Name  string  `json:"name"`
		Kind  string  `json:"kind"`
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.NotEmpty(t, out)
	assert.Equal(t, "helper", out[0].Name)
	assert.Equal(t, "function", out[0].Kind)
	assert.Equal(t, 1.0, out[0].Score)
}

func TestScanCandidatesTool(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"a.go": "package a\n\nvar helper = 1\n",
		"b.go": "package a\n\n// helper is mentioned here too\n",
	})

	res := callTool(t, s, map[string]any{"identifier": "helper"}, s.handleScanCandidates)
	require.False(t, res.IsError)

	var out []struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "a.go", out[0].Path)
	assert.Equal(t, "b.go", out[1].Path)
}

func TestWorkspaceStatusTool(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"main.go":  mainGo,
		"util.py":  "def run():\n    pass\n",
		"notes.md": "not source\n",
	})

	res := callTool(t, s, nil, s.handleWorkspaceStatus)
	require.False(t, res.IsError)

	var out struct {
		Files     int            `json:"files"`
		Languages map[string]int `json:"languages"`
		Watching  bool           `json:"watching"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	assert.Equal(t, 1, out.Languages["go"])
	assert.Equal(t, 1, out.Languages["python"])
	assert.False(t, out.Watching)
	assert.GreaterOrEqual(t, out.Files, 2)
}
