package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

type fixture struct {
	ws       *workspace.Workspace
	provider *workspace.Provider
	view     *syntax.View
	res      *Resolver
}

func newFixture(t *testing.T, files map[string]string) *fixture {
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
	return &fixture{
		ws:       ws,
		provider: provider,
		view:     view,
		res:      New(view, ws, provider),
	}
}

func (f *fixture) parse(t *testing.T, rel string) *syntax.ParsedFile {
	t.Helper()
	id, ok := f.ws.IDOf(rel)
	require.True(t, ok, "file %s not in workspace", rel)
	content, err := f.provider.Read(id)
	require.NoError(t, err)
	pf, err := f.view.Parse(id, rel, content)
	require.NoError(t, err)
	t.Cleanup(pf.Close)
	return pf
}

// offsetOf locates the nth occurrence of needle (1-based) in the file.
func offsetOf(t *testing.T, files map[string]string, rel, needle string, nth int) uint32 {
	t.Helper()
	content := files[rel]
	off := 0
	for i := 0; i < nth; i++ {
		idx := strings.Index(content[off:], needle)
		require.GreaterOrEqual(t, idx, 0, "occurrence %d of %q in %s", nth, needle, rel)
		off += idx + 1
	}
	return uint32(off - 1)
}

func TestResolver_ShadowedLocalWins(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nvar count = 0\n\nfunc bump() int {\n\tcount := 5\n\treturn count + 1\n}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	// The use inside bump resolves to the local, not the package var.
	use := offsetOf(t, files, "main.go", "count", 3)
	node := pf.NodeAt(use)
	require.NotNil(t, node)
	def, ok := f.res.ResolveReference(pf, node)
	require.True(t, ok)
	assert.Equal(t, types.KindLocal, def.Kind)
	assert.Equal(t, offsetOf(t, files, "main.go", "count", 2), def.Pos.Offset)
}

func TestResolver_FileScopeFallback(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc helper() int { return 1 }\n\nfunc caller() int {\n\treturn helper()\n}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	use := offsetOf(t, files, "main.go", "helper", 2)
	def, ok, err := f.res.DefinitionAt(pf, use)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.KindFunc, def.Kind)
	assert.Equal(t, offsetOf(t, files, "main.go", "helper", 1), def.Pos.Offset)
	assert.Equal(t, types.VisibilityPrivate, def.Visibility)
}

func TestResolver_DefinitionAtDeclaration(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc Exported() {}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	decl := offsetOf(t, files, "main.go", "Exported", 1)
	def, ok, err := f.res.DefinitionAt(pf, decl)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Exported", def.Name)
	assert.Equal(t, decl, def.Pos.Offset)
	assert.Equal(t, types.VisibilityPublic, def.Visibility)
}

func TestResolver_CrossFileModuleLookup(t *testing.T) {
	files := map[string]string{
		"pkg/a.go": "package pkg\n\nfunc shared() int { return 42 }\n",
		"pkg/b.go": "package pkg\n\nfunc use() int { return shared() }\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "pkg/b.go")

	use := offsetOf(t, files, "pkg/b.go", "shared", 1)
	node := pf.NodeAt(use)
	require.NotNil(t, node)
	def, ok := f.res.ResolveReference(pf, node)
	require.True(t, ok)

	wantFile, _ := f.ws.IDOf("pkg/a.go")
	assert.Equal(t, wantFile, def.Pos.File)
	assert.Equal(t, types.VisibilityPrivate, def.Visibility)
}

func TestResolver_MatchesRejectsShadowedCandidate(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nvar x = 1\n\nfunc f(c bool) int {\n\tif c {\n\t\tx := 2\n\t\treturn x\n\t}\n\treturn x\n}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	// Target is the package-level x.
	target, ok, err := f.res.DefinitionAt(pf, offsetOf(t, files, "main.go", "x", 1))
	require.NoError(t, err)
	require.True(t, ok)

	shadowedUse := pf.NodeAt(offsetOf(t, files, "main.go", "x", 3))
	require.NotNil(t, shadowedUse)
	assert.False(t, f.res.Matches(pf, shadowedUse, target))

	outerUse := pf.NodeAt(offsetOf(t, files, "main.go", "x", 4))
	require.NotNil(t, outerUse)
	assert.True(t, f.res.Matches(pf, outerUse, target))
}

func TestResolver_PythonUnderscorePrivate(t *testing.T) {
	files := map[string]string{
		"mod.py": "_secret = 1\n\ndef _hidden():\n    return _secret\n\ndef visible():\n    return _hidden()\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "mod.py")

	def, ok, err := f.res.DefinitionAt(pf, offsetOf(t, files, "mod.py", "_hidden", 1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.VisibilityPrivate, def.Visibility)

	def, ok, err = f.res.DefinitionAt(pf, offsetOf(t, files, "mod.py", "visible", 1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.VisibilityPublic, def.Visibility)
}

func TestResolver_PythonRebindingCanonicalizes(t *testing.T) {
	files := map[string]string{
		"mod.py": "total = 0\ntotal = total + 1\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "mod.py")

	first := offsetOf(t, files, "mod.py", "total", 1)
	second := offsetOf(t, files, "mod.py", "total", 2)

	def, ok, err := f.res.DefinitionAt(pf, second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, def.Pos.Offset)
}

func TestResolver_ParamResolution(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc double(n int) int {\n\treturn n * 2\n}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	use := offsetOf(t, files, "main.go", "n * 2", 1)
	node := pf.NodeAt(use)
	require.NotNil(t, node)
	def, ok := f.res.ResolveReference(pf, node)
	require.True(t, ok)
	assert.Equal(t, types.KindParam, def.Kind)
	assert.Equal(t, offsetOf(t, files, "main.go", "n int", 1), def.Pos.Offset)
}

func TestResolver_EnclosingDefinitions(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nfunc outer() {\n\tinner := func() {\n\t\t_ = 1\n\t}\n\tinner()\n}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	inside := offsetOf(t, files, "main.go", "_ = 1", 1)
	encl := f.res.EnclosingDefinitions(pf, inside)
	require.NotEmpty(t, encl)
	assert.Equal(t, "outer", encl[len(encl)-1].Name)
}

func TestResolver_FileDefinitions(t *testing.T) {
	files := map[string]string{
		"main.go": "package main\n\nconst limit = 10\n\ntype Widget struct{}\n\nfunc (w Widget) Render() {}\n\nfunc helper() {\n\tlocal := 1\n\t_ = local\n}\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "main.go")

	defs := f.res.FileDefinitions(pf)
	names := make(map[string]types.SymbolKind, len(defs))
	for _, d := range defs {
		names[d.Name] = d.Kind
	}
	assert.Equal(t, types.KindConst, names["limit"])
	assert.Equal(t, types.KindType, names["Widget"])
	assert.Equal(t, types.KindMethod, names["Render"])
	assert.Equal(t, types.KindFunc, names["helper"])
	assert.Equal(t, types.KindLocal, names["local"])
}

func TestJSFastPath_TopLevel(t *testing.T) {
	src := "function greet(name) { return name; }\nvar counter = 0;\nconst handler = () => counter;\n"
	defs, ok := jsTopLevel(0, []byte(src))
	require.True(t, ok)

	byName := make(map[string]types.Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	require.Contains(t, byName, "greet")
	assert.Equal(t, types.KindFunc, byName["greet"].Kind)
	assert.Equal(t, uint32(strings.Index(src, "greet")), byName["greet"].Pos.Offset)

	require.Contains(t, byName, "counter")
	assert.Equal(t, types.KindVar, byName["counter"].Kind)

	require.Contains(t, byName, "handler")
	assert.Equal(t, types.KindFunc, byName["handler"].Kind)
}

func TestJSFastPath_FallsBackOnModules(t *testing.T) {
	_, ok := jsTopLevel(0, []byte("export function visible() {}\n"))
	assert.False(t, ok)
}

func TestResolver_Invalidate(t *testing.T) {
	files := map[string]string{
		"pkg/a.go": "package pkg\n\nfunc shared() int { return 1 }\n",
		"pkg/b.go": "package pkg\n\nfunc use() int { return shared() }\n",
	}
	f := newFixture(t, files)
	pf := f.parse(t, "pkg/b.go")

	node := pf.NodeAt(offsetOf(t, files, "pkg/b.go", "shared", 1))
	require.NotNil(t, node)
	_, ok := f.res.ResolveReference(pf, node)
	require.True(t, ok)

	// Invalidation only drops the memo; resolution still works afterward.
	ids := f.ws.AllFiles()
	f.res.Invalidate(ids)
	_, ok = f.res.ResolveReference(pf, node)
	assert.True(t, ok)
}
