package usages

import (
	"github.com/standardbeagle/reflens/internal/scanner"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
)

// verifier runs the per-candidate checks. It owns the invocation's parse
// cache, so each file is read and parsed at most once no matter how many
// candidates land in it, and a line index per touched file for position
// reporting.
type verifier struct {
	f     *Funnel
	cache *syntax.ParseCache
	diags *diagnostics

	lines    map[types.FileID]*scanner.LineIndex
	reported map[types.FileID]struct{}
}

func newVerifier(f *Funnel, cache *syntax.ParseCache, diags *diagnostics) *verifier {
	return &verifier{
		f:        f,
		cache:    cache,
		diags:    diags,
		lines:    make(map[types.FileID]*scanner.LineIndex),
		reported: make(map[types.FileID]struct{}),
	}
}

// verify decides whether the candidate position is a real usage of target.
// The checks run cheapest-first: parse (memoized), node class, semantic
// resolution, declaring-position identity.
func (v *verifier) verify(pos types.Position, target types.Definition, includeDecl bool) (types.Usage, bool) {
	pf, err := v.cache.Get(pos.File, v.f.ws.PathOf(pos.File), func() ([]byte, error) {
		return v.f.provider.Read(pos.File)
	})
	if err != nil {
		// One diagnostic per broken file, not per candidate in it.
		if _, seen := v.reported[pos.File]; !seen {
			v.reported[pos.File] = struct{}{}
			v.diags.add(err)
		}
		return types.Usage{}, false
	}

	node := pf.NodeAt(pos.Offset)
	if node == nil || syntax.Classify(node) != types.NodeIdentifier {
		return types.Usage{}, false
	}
	// The token must begin exactly at the candidate offset; a hit inside a
	// larger identifier token is textual coincidence.
	if uint32(node.StartByte()) != pos.Offset {
		return types.Usage{}, false
	}

	if !v.f.res.Matches(pf, node, target) {
		return types.Usage{}, false
	}

	isDecl := target.ContainsOffset(pos.File, pos.Offset)
	if isDecl && !includeDecl {
		return types.Usage{}, false
	}

	li, ok := v.lines[pos.File]
	if !ok {
		li = scanner.NewLineIndex(pf.Content)
		v.lines[pos.File] = li
	}
	line, col := li.Locate(pos.Offset)

	container := ""
	if encl := v.f.res.EnclosingDefinitions(pf, pos.Offset); len(encl) > 0 {
		container = encl[0].Name
	}

	return types.Usage{
		Ref:           types.Reference{Name: target.Name, Pos: pos},
		Path:          v.f.ws.PathOf(pos.File),
		Line:          line,
		Column:        col,
		Snippet:       li.Snippet(pos.Offset),
		Container:     container,
		IsDeclaration: isDecl,
	}, true
}
