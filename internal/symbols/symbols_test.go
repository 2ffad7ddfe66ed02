package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/resolver"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/workspace"
)

func newTestSearch(t *testing.T, files map[string]string) *Search {
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
	ws, err := workspace.New(cfg)
	require.NoError(t, err)

	provider := workspace.NewProvider(ws)
	view := syntax.NewView()
	res := resolver.New(view, ws, provider)
	return NewSearch(ws, provider, view, res, cfg.Symbols)
}

func names(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Def.Name
	}
	return out
}

func TestQuery_ExactBeatsPrefixBeatsSubstring(t *testing.T) {
	s := newTestSearch(t, map[string]string{
		"a.go": "package a\n\nfunc Handle() {}\n\nfunc HandleRequest() {}\n\nfunc prehandler() {}\n",
	})

	got, err := s.Query(context.Background(), "Handle")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 3)

	assert.Equal(t, "Handle", got[0].Def.Name)
	assert.Equal(t, "HandleRequest", got[1].Def.Name)
	assert.Equal(t, "prehandler", got[2].Def.Name)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Greater(t, got[1].Score, got[2].Score)
}

func TestQuery_FuzzyCatchesTypos(t *testing.T) {
	s := newTestSearch(t, map[string]string{
		"a.go": "package a\n\nfunc ParseConfig() {}\n",
	})

	got, err := s.Query(context.Background(), "PraseConfig")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Contains(t, names(got), "ParseConfig")
}

func TestQuery_StemMatchesWordForms(t *testing.T) {
	s := newTestSearch(t, map[string]string{
		"a.py": "def running():\n    pass\n",
	})

	got, err := s.Query(context.Background(), "runs")
	require.NoError(t, err)
	assert.Contains(t, names(got), "running")
}

func TestQuery_SkipsLocals(t *testing.T) {
	s := newTestSearch(t, map[string]string{
		"a.go": "package a\n\nfunc work() {\n\tscratch := 1\n\t_ = scratch\n}\n",
	})

	got, err := s.Query(context.Background(), "scratch")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_MaxResultsCaps(t *testing.T) {
	s := newTestSearch(t, map[string]string{
		"a.go": "package a\n\nfunc item1() {}\nfunc item2() {}\nfunc item3() {}\n",
	})
	s.cfg.MaxResults = 2

	got, err := s.Query(context.Background(), "item")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQuery_EmptyQuery(t *testing.T) {
	s := newTestSearch(t, map[string]string{
		"a.go": "package a\n\nfunc f() {}\n",
	})

	got, err := s.Query(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, got)
}
