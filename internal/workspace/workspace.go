package workspace

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/types"
)

// Workspace is an immutable snapshot of the project's file table. Paths are
// stored slash-separated and relative to the root; FileIDs are assigned in
// lexicographic path order, so ascending-ID iteration is the deterministic
// scan order the engine promises.
type Workspace struct {
	root        string
	paths       []string // index = FileID
	ids         map[string]types.FileID
	sourceRoots map[string]string // directory -> nearest enclosing source root
}

// manifestNames mark a directory as a source root (compilation unit) for the
// package-visibility bound.
var manifestNames = map[string]bool{
	"go.mod":         true,
	"Cargo.toml":     true,
	"package.json":   true,
	"pyproject.toml": true,
	"setup.py":       true,
	"pom.xml":        true,
	"composer.json":  true,
	"build.zig":      true,
}

// New builds a workspace snapshot by walking cfg.Project.Root, applying the
// configured include/exclude globs, gitignore patterns, binary detection and
// size limits. Unreadable subtrees are skipped, not fatal.
func New(cfg *config.Config) (*Workspace, error) {
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, err
	}

	exclude := cfg.Exclude
	if cfg.Scan.RespectGitignore {
		gp := config.NewGitignoreParser()
		if err := gp.LoadGitignore(root); err == nil {
			exclude = append(append([]string{}, exclude...), gp.ExclusionPatterns()...)
		}
	}

	ws := &Workspace{
		root:        root,
		ids:         make(map[string]types.FileID),
		sourceRoots: make(map[string]string),
	}

	manifests := make(map[string]bool) // directories containing a manifest
	var paths []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			// Prune excluded subtrees without descending.
			if matchesAny(exclude, rel+"/") || matchesAny(exclude, rel) {
				return filepath.SkipDir
			}
			if !cfg.Scan.FollowSymlinks && d.Type()&fs.ModeSymlink != 0 {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !cfg.Scan.FollowSymlinks {
			return nil
		}
		if manifestNames[d.Name()] {
			manifests[filepath.ToSlash(filepath.Dir(rel))] = true
		}
		if matchesAny(exclude, rel) {
			return nil
		}
		if len(cfg.Include) > 0 && !matchesAny(cfg.Include, rel) {
			return nil
		}
		if isBinaryExtension(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > cfg.Scan.MaxFileSize {
			debug.LogScan("skipping oversized file %s (%d bytes)\n", rel, info.Size())
			return nil
		}
		if info.Size() > types.BinaryPreCheckSizeThreshold && sniffBinary(path) {
			return nil
		}

		paths = append(paths, rel)
		if len(paths) >= cfg.Scan.MaxFileCount {
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(paths)
	ws.paths = paths
	for i, p := range paths {
		ws.ids[p] = types.FileID(i)
	}

	// Resolve each file's directory to its nearest enclosing source root.
	manifests["."] = true
	for _, p := range paths {
		dir := dirOf(p)
		if _, done := ws.sourceRoots[dir]; done {
			continue
		}
		ws.sourceRoots[dir] = nearestRoot(dir, manifests)
	}

	debug.LogScan("workspace snapshot: %d files under %s\n", len(paths), root)
	return ws, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func dirOf(rel string) string {
	d := filepath.ToSlash(filepath.Dir(rel))
	return d
}

func nearestRoot(dir string, manifests map[string]bool) string {
	for d := dir; ; {
		if manifests[d] {
			return d
		}
		if d == "." {
			return "."
		}
		parent := filepath.ToSlash(filepath.Dir(d))
		if parent == d {
			return "."
		}
		d = parent
	}
}

// Root returns the absolute workspace root directory.
func (ws *Workspace) Root() string { return ws.root }

// Len returns the number of files in the snapshot.
func (ws *Workspace) Len() int { return len(ws.paths) }

// PathOf returns the slash-separated relative path for id, or "" if the id
// is out of range.
func (ws *Workspace) PathOf(id types.FileID) string {
	if int(id) >= len(ws.paths) {
		return ""
	}
	return ws.paths[id]
}

// AbsPathOf returns the absolute path for id.
func (ws *Workspace) AbsPathOf(id types.FileID) string {
	p := ws.PathOf(id)
	if p == "" {
		return ""
	}
	return filepath.Join(ws.root, filepath.FromSlash(p))
}

// IDOf looks up the FileID for a relative slash path.
func (ws *Workspace) IDOf(rel string) (types.FileID, bool) {
	id, ok := ws.ids[filepath.ToSlash(rel)]
	return id, ok
}

// IDOfAny resolves either an absolute path or a root-relative path.
func (ws *Workspace) IDOfAny(path string) (types.FileID, bool) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(ws.root, path)
		if err != nil {
			return 0, false
		}
		path = rel
	}
	return ws.IDOf(filepath.ToSlash(path))
}

// AllFiles returns every FileID in ascending (lexicographic-path) order.
func (ws *Workspace) AllFiles() []types.FileID {
	out := make([]types.FileID, len(ws.paths))
	for i := range ws.paths {
		out[i] = types.FileID(i)
	}
	return out
}

// ModuleOf returns the module (directory) containing id. Directories are the
// module granularity for private visibility.
func (ws *Workspace) ModuleOf(id types.FileID) string {
	p := ws.PathOf(id)
	if p == "" {
		return ""
	}
	return dirOf(p)
}

// ModuleFiles returns the files directly inside module dir, ascending.
func (ws *Workspace) ModuleFiles(dir string) []types.FileID {
	var out []types.FileID
	for i, p := range ws.paths {
		if dirOf(p) == dir {
			out = append(out, types.FileID(i))
		}
	}
	return out
}

// SourceRootOf returns the compilation-unit root directory for id: the
// nearest ancestor directory holding a build manifest, or "." when none.
func (ws *Workspace) SourceRootOf(id types.FileID) string {
	dir := ws.ModuleOf(id)
	if r, ok := ws.sourceRoots[dir]; ok {
		return r
	}
	return "."
}

// FilesUnder returns every file at or below dir, ascending.
func (ws *Workspace) FilesUnder(dir string) []types.FileID {
	if dir == "." {
		return ws.AllFiles()
	}
	prefix := dir + "/"
	var out []types.FileID
	for i, p := range ws.paths {
		if dirOf(p) == dir || strings.HasPrefix(p, prefix) {
			out = append(out, types.FileID(i))
		}
	}
	return out
}

// binaryExtensions covers formats tree-sitter should never see. The config
// exclude list catches most of these earlier; this is the walker's own
// backstop.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".7z": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".obj": true, ".class": true, ".pyc": true, ".wasm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".sqlite": true, ".db": true, ".bin": true,
}

func isBinaryExtension(rel string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(rel))]
}

// sniffBinary reads the first bytes of a large file and reports whether they
// look like binary content (NUL bytes), without loading the whole file.
func sniffBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, types.BinaryPreCheckBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return true
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
