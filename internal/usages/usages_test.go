package usages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/resolver"
	"github.com/standardbeagle/reflens/internal/scope"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

type fixture struct {
	ws     *workspace.Workspace
	funnel *Funnel
	files  map[string]string
}

func newFixture(t *testing.T, files map[string]string, opts ...FunnelOption) *fixture {
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
	funnel := NewFunnel(ws, provider, view, res, scope.NewComputer(ws), opts...)
	return &fixture{ws: ws, funnel: funnel, files: files}
}

func (f *fixture) pos(t *testing.T, rel, needle string, nth int) types.Position {
	t.Helper()
	id, ok := f.ws.IDOf(rel)
	require.True(t, ok, rel)
	content := f.files[rel]
	off := 0
	for i := 0; i < nth; i++ {
		idx := strings.Index(content[off:], needle)
		require.GreaterOrEqual(t, idx, 0, "occurrence %d of %q in %s", nth, needle, rel)
		off += idx + 1
	}
	return types.Position{File: id, Offset: uint32(off - 1)}
}

func (f *fixture) find(t *testing.T, start types.Position, r types.Restriction, opts Options) []types.Usage {
	t.Helper()
	return f.funnel.FindUsages(context.Background(), start, r, opts).Collect()
}

func workspaceWide() types.Restriction {
	return types.Restriction{Kind: types.RestrictWorkspace}
}

func TestFindUsages_ShadowingSplitsUsages(t *testing.T) {
	files := map[string]string{
		"main.go": `package main

func choose(c bool) int {
	x := 1
	if c {
		x := 10
		return x + 1
	}
	return x + 2
}
`,
	}
	f := newFixture(t, files)

	// Querying the outer x finds only the x + 2 use; the x + 1 inside the
	// if block belongs to the inner shadowing declaration.
	outer := f.find(t, f.pos(t, "main.go", "x := 1", 1), workspaceWide(), Options{})
	require.Len(t, outer, 1)
	assert.Equal(t, "return x + 2", outer[0].Snippet)
	assert.Equal(t, "choose", outer[0].Container)

	inner := f.find(t, f.pos(t, "main.go", "x := 10", 1), workspaceWide(), Options{})
	require.Len(t, inner, 1)
	assert.Equal(t, "return x + 1", inner[0].Snippet)
}

func TestFindUsages_PrivateVisibilityClipsWorkspaceRestriction(t *testing.T) {
	files := map[string]string{
		"pkg/a.go":   "package pkg\n\nfunc helper() int { return 1 }\n",
		"pkg/b.go":   "package pkg\n\nfunc use() int { return helper() }\n",
		"other/c.go": "package other\n\nfunc helper() int { return 2 }\n\nvar v = helper()\n",
	}
	f := newFixture(t, files)

	got := f.find(t, f.pos(t, "pkg/a.go", "helper", 1), workspaceWide(), Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "pkg/b.go", got[0].Path)
}

func TestFindUsages_CommentAndStringCandidatesDiscarded(t *testing.T) {
	files := map[string]string{
		"main.go": `package main

// frob is documented: call frob carefully.
func frob() {}

var label = "frob"

func run() { frob() }
`,
	}
	f := newFixture(t, files)

	got := f.find(t, f.pos(t, "main.go", "frob()", 2), workspaceWide(), Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "func run() { frob() }", got[0].Snippet)
}

func TestFindUsages_FieldSelectorDoesNotMatchLocal(t *testing.T) {
	files := map[string]string{
		"main.go": `package main

type box struct{ x int }

func pick(s box) int {
	x := 1
	s.x = 2
	return x
}
`,
	}
	f := newFixture(t, files)

	// The x in s.x refers through the receiver, not the local; only the
	// bare return x is a usage.
	got := f.find(t, f.pos(t, "main.go", "x := 1", 1), workspaceWide(), Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "return x", got[0].Snippet)
}

func TestFindUsages_AttributeAccessDoesNotMatchModuleFunction(t *testing.T) {
	files := map[string]string{
		"lib.py": "def helper():\n    return 1\n\nvalue = helper()\n",
		"use.py": "def run(obj):\n    return obj.helper()\n",
	}
	f := newFixture(t, files)

	got := f.find(t, f.pos(t, "lib.py", "helper", 1), workspaceWide(), Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "value = helper()", got[0].Snippet)
}

func TestFindUsages_StartOnMemberPositionIsEmpty(t *testing.T) {
	files := map[string]string{
		"main.go": `package main

type box struct{ x int }

func pick(s box) int {
	x := 1
	s.x = 2
	return x
}
`,
	}
	f := newFixture(t, files)

	// A cursor on the x of s.x cannot resolve without type information
	// and must not fall back to the lexical x.
	got := f.find(t, f.pos(t, "main.go", "x = 2", 1), workspaceWide(), Options{})
	assert.Empty(t, got)
}

func TestFindUsages_IncludeDeclaration(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc single() {}\n\nfunc run() { single() }\n",
	}
	f := newFixture(t, files)
	start := f.pos(t, "main.go", "single", 1)

	without := f.find(t, start, workspaceWide(), Options{})
	require.Len(t, without, 1)
	assert.False(t, without[0].IsDeclaration)

	with := f.find(t, start, workspaceWide(), Options{IncludeDeclaration: true})
	require.Len(t, with, 2)
	assert.True(t, with[0].IsDeclaration)
	assert.False(t, with[1].IsDeclaration)
}

func TestFindUsages_StartOnUsageNormalizes(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc target() {}\n\nfunc a() { target() }\n\nfunc b() { target() }\n",
	}
	f := newFixture(t, files)

	fromDecl := f.find(t, f.pos(t, "main.go", "target", 1), workspaceWide(), Options{})
	fromUse := f.find(t, f.pos(t, "main.go", "target", 2), workspaceWide(), Options{})
	assert.Equal(t, fromDecl, fromUse)
	assert.Len(t, fromDecl, 2)
}

func TestFindUsages_DeterministicOrder(t *testing.T) {
	files := map[string]string{
		"a.go": "package main\n\nvar u1 = Shared\n",
		"m.go": "package main\n\nvar Shared = 0\n",
		"z.go": "package main\n\nvar u2 = Shared\nvar u3 = Shared\n",
	}
	f := newFixture(t, files)
	start := f.pos(t, "m.go", "Shared", 1)

	first := f.find(t, start, workspaceWide(), Options{})
	second := f.find(t, start, workspaceWide(), Options{})
	require.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.Equal(t, "a.go", first[0].Path)
	assert.Equal(t, "z.go", first[1].Path)
	assert.Equal(t, "z.go", first[2].Path)
	assert.Less(t, first[1].Ref.Pos.Offset, first[2].Ref.Pos.Offset)
}

func TestFindUsages_SingleFileRestrictionIsSubset(t *testing.T) {
	files := map[string]string{
		"a.go": "package main\n\nvar u1 = Shared\n",
		"m.go": "package main\n\nvar Shared = 0\nvar u0 = Shared\n",
	}
	f := newFixture(t, files)
	start := f.pos(t, "m.go", "Shared", 1)

	all := f.find(t, start, workspaceWide(), Options{})
	require.Len(t, all, 2)

	mID, _ := f.ws.IDOf("m.go")
	clipped := f.find(t, start, types.Restriction{Kind: types.RestrictSingleFile, File: mID}, Options{})
	require.Len(t, clipped, 1)
	assert.Equal(t, "m.go", clipped[0].Path)
}

func TestFindUsages_EarlyTermination(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nvar N = 0\nvar a = N\nvar b = N\nvar c = N\n",
	}
	f := newFixture(t, files)

	stream := f.funnel.FindUsages(context.Background(), f.pos(t, "main.go", "N", 1), workspaceWide(), Options{})
	var seen int
	for range stream.All() {
		seen++
		if seen == 1 {
			break
		}
	}
	assert.Equal(t, 1, seen)
}

func TestFindUsages_UnresolvableStartIsEmpty(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc f() {}\n",
	}
	f := newFixture(t, files)

	// Offset 0 sits on the package keyword, not an identifier.
	stream := f.funnel.FindUsages(context.Background(),
		types.Position{File: 0, Offset: 0}, workspaceWide(), Options{})
	assert.Empty(t, stream.Collect())
}

func TestFindUsages_UnreadableFileBecomesDiagnostic(t *testing.T) {
	files := map[string]string{
		"a.go": "package main\n\nvar u1 = Shared\n",
		"m.go": "package main\n\nvar Shared = 0\nvar u0 = Shared\n",
	}
	f := newFixture(t, files)
	start := f.pos(t, "m.go", "Shared", 1)

	aID, _ := f.ws.IDOf("a.go")
	require.NoError(t, os.Remove(f.ws.AbsPathOf(aID)))

	stream := f.funnel.FindUsages(context.Background(), start, workspaceWide(), Options{})
	got := stream.Collect()
	require.Len(t, got, 1)
	assert.Equal(t, "m.go", got[0].Path)

	first := stream.Diagnostics()
	assert.NotEmpty(t, first)

	// Re-iterating re-runs the query; diagnostics describe the latest
	// run and do not accumulate across runs.
	_ = stream.Collect()
	assert.Len(t, stream.Diagnostics(), len(first))
}

func TestFindUsages_ParallelMatchesSequential(t *testing.T) {
	files := map[string]string{
		"a.go": "package main\n\nvar u1 = Shared\n",
		"m.go": "package main\n\nvar Shared = 0\n",
		"z.go": "package main\n\nvar u2 = Shared\n",
	}
	seqF := newFixture(t, files)
	parF := newFixture(t, files, WithWorkers(4))

	want := seqF.find(t, seqF.pos(t, "m.go", "Shared", 1), workspaceWide(), Options{})
	got := parF.find(t, parF.pos(t, "m.go", "Shared", 1), workspaceWide(), Options{})

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Path, got[i].Path)
		assert.Equal(t, want[i].Ref.Pos, got[i].Ref.Pos)
	}
}
