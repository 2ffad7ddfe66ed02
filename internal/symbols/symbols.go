// Package symbols implements workspace-wide symbol search: given a query
// string, rank every known definition by how well its name matches. The
// layers run strongest first: exact, prefix, substring, Jaro-Winkler
// similarity for typos, and Porter2 stem equality for word-form drift
// (handleRequests vs handleRequest).
package symbols

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/resolver"
	"github.com/standardbeagle/reflens/internal/scanner"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

// Layer score ceilings. A weaker layer can never outrank a stronger one.
const (
	scoreExact     = 1.0
	scoreExactFold = 0.95
	scorePrefix    = 0.85
	scoreSubstring = 0.7
	scoreFuzzyBase = 0.3 // plus up to 0.3 proportional to similarity
	scoreFuzzySpan = 0.3
	scoreStem      = 0.45
)

// Match is one ranked search hit.
type Match struct {
	Def    types.Definition
	Path   string
	Line   int
	Column int
	Score  float64
}

type Search struct {
	ws       *workspace.Workspace
	provider *workspace.Provider
	view     *syntax.View
	res      *resolver.Resolver
	cfg      config.Symbols
}

func NewSearch(ws *workspace.Workspace, provider *workspace.Provider, view *syntax.View, res *resolver.Resolver, cfg config.Symbols) *Search {
	return &Search{ws: ws, provider: provider, view: view, res: res, cfg: cfg}
}

// Query ranks all workspace definitions against the query string and
// returns at most MaxResults matches above MinScore, best first. Ties
// break lexicographically by path then offset so results are stable.
func (s *Search) Query(ctx context.Context, query string) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var out []Match
	for _, id := range s.ws.AllFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = s.appendFileMatches(out, id, query)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Def.Pos.Offset < out[j].Def.Pos.Offset
	})

	if s.cfg.MaxResults > 0 && len(out) > s.cfg.MaxResults {
		out = out[:s.cfg.MaxResults]
	}
	debug.Log("symbols", "query %q: %d matches", query, len(out))
	return out, nil
}

func (s *Search) appendFileMatches(out []Match, id types.FileID, query string) []Match {
	path := s.ws.PathOf(id)
	if syntax.LanguageForPath(path) == syntax.LangUnknown {
		return out
	}
	content, err := s.provider.Read(id)
	if err != nil {
		return out
	}
	pf, err := s.view.Parse(id, path, content)
	if err != nil {
		return out
	}
	defer pf.Close()

	var li *scanner.LineIndex
	for _, def := range s.res.FileDefinitions(pf) {
		if def.Kind.IsLocal() {
			continue
		}
		score := s.score(query, def.Name)
		if score < s.cfg.MinScore {
			continue
		}
		if li == nil {
			li = scanner.NewLineIndex(content)
		}
		line, col := li.Locate(def.Pos.Offset)
		out = append(out, Match{Def: def, Path: path, Line: line, Column: col, Score: score})
	}
	return out
}

// score runs the match layers strongest first and returns the first hit.
func (s *Search) score(query, name string) float64 {
	if name == query {
		return scoreExact
	}
	qf, nf := strings.ToLower(query), strings.ToLower(name)
	if nf == qf {
		return scoreExactFold
	}
	if strings.HasPrefix(nf, qf) {
		return scorePrefix
	}
	if strings.Contains(nf, qf) {
		return scoreSubstring
	}

	if sim, err := edlib.StringsSimilarity(qf, nf, edlib.JaroWinkler); err == nil {
		if float64(sim) >= s.cfg.FuzzyThreshold {
			return scoreFuzzyBase + scoreFuzzySpan*float64(sim)
		}
	}

	if len(qf) >= s.cfg.StemMinLength && len(nf) >= s.cfg.StemMinLength {
		if porter2.Stem(qf) == porter2.Stem(nf) {
			return scoreStem
		}
	}
	return 0
}
