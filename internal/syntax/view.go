// Package syntax is the engine's Syntax View: parsing file text into
// tree-sitter trees, locating the node covering a byte offset, and
// classifying nodes coarsely enough for the verifier to reject candidates
// that fall inside comments, strings or unrelated tokens.
package syntax

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/reflens/internal/debug"
	reflerrors "github.com/standardbeagle/reflens/internal/errors"
	"github.com/standardbeagle/reflens/internal/types"
)

// View owns the per-language parsers. Parsers are created on first use and
// serialized per language; the funnel parses from a single goroutine, so the
// lock is only contested when symbol search and a query run concurrently.
type View struct {
	mu      sync.Mutex
	langs   map[Language]*tree_sitter.Language
	parsers map[Language]*tree_sitter.Parser
}

// NewView creates an empty view; no grammar is loaded until needed.
func NewView() *View {
	return &View{
		langs:   make(map[Language]*tree_sitter.Language),
		parsers: make(map[Language]*tree_sitter.Parser),
	}
}

// ParsedFile is one file's syntax tree plus the exact byte content it was
// parsed from. It owns the CGO tree; Close must be called when the owning
// ParseCache is torn down.
type ParsedFile struct {
	File    types.FileID
	Path    string
	Lang    Language
	Content []byte
	Tree    *tree_sitter.Tree
}

// Parse parses content as the language implied by path. The content is
// copied first: the tree-sitter C library reads the buffer via CGO and the
// caller's slice must stay immutable.
func (v *View) Parse(id types.FileID, path string, content []byte) (pf *ParsedFile, err error) {
	lang := LanguageForPath(path)
	if lang == LangUnknown {
		return nil, reflerrors.NewParseError(id, path, 0, 0,
			fmt.Errorf("no grammar for %s", path))
	}

	parser, perr := v.parserFor(lang)
	if perr != nil {
		return nil, reflerrors.NewParseError(id, path, 0, 0, perr)
	}

	// Tree-sitter panics surface as Go panics through CGO on malformed
	// input; treat them as parse failures, not crashes.
	defer func() {
		if r := recover(); r != nil {
			debug.LogResolve("tree-sitter panic in %s: %v\n", path, r)
			pf = nil
			err = reflerrors.NewParseError(id, path, 0, 0, fmt.Errorf("parser panic: %v", r))
		}
	}()

	buf := make([]byte, len(content))
	copy(buf, content)

	v.mu.Lock()
	tree := parser.Parse(buf, nil)
	v.mu.Unlock()
	if tree == nil {
		return nil, reflerrors.NewParseError(id, path, 0, 0, fmt.Errorf("parser returned no tree"))
	}

	return &ParsedFile{File: id, Path: path, Lang: lang, Content: buf, Tree: tree}, nil
}

func (v *View) parserFor(lang Language) (*tree_sitter.Parser, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p, ok := v.parsers[lang]; ok {
		return p, nil
	}

	loader, ok := grammarLoaders[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	tsLang := loader()
	v.langs[lang] = tsLang

	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("cannot set %s grammar: %w", lang, err)
	}
	v.parsers[lang] = parser
	return parser, nil
}

// Close releases a parsed file's CGO tree. Safe to call more than once.
func (pf *ParsedFile) Close() {
	if pf.Tree != nil {
		pf.Tree.Close()
		pf.Tree = nil
	}
}

// Root returns the tree's root node.
func (pf *ParsedFile) Root() *tree_sitter.Node {
	return pf.Tree.RootNode()
}

// NodeAt returns the smallest named node covering offset, or nil when the
// offset is out of range.
func (pf *ParsedFile) NodeAt(offset uint32) *tree_sitter.Node {
	if int(offset) >= len(pf.Content) {
		return nil
	}
	return pf.Root().NamedDescendantForByteRange(uint(offset), uint(offset))
}

// Text returns n's source text.
func (pf *ParsedFile) Text(n *tree_sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(pf.Content) || start > end {
		return ""
	}
	return string(pf.Content[start:end])
}

// identifierKinds are node kinds that name something across the supported
// grammars. PHP's (name) and variable_name cover its two identifier forms.
var identifierKinds = map[string]bool{
	"identifier":                     true,
	"field_identifier":               true,
	"type_identifier":                true,
	"property_identifier":            true,
	"shorthand_property_identifier":  true,
	"statement_identifier":           true,
	"namespace_identifier":           true,
	"name":                           true,
	"variable_name":                  true,
}

var commentKinds = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
	"doc_comment":   true,
}

var stringKinds = map[string]bool{
	"string":                      true,
	"string_literal":              true,
	"interpreted_string_literal":  true,
	"raw_string_literal":          true,
	"string_fragment":             true,
	"string_content":              true,
	"char_literal":                true,
	"rune_literal":                true,
	"template_string":             true,
	"heredoc_body":                true,
	"encapsed_string":             true,
}

// Classify maps a node to the coarse class the verifier filters on.
func Classify(n *tree_sitter.Node) types.NodeClass {
	if n == nil {
		return types.NodeOther
	}
	kind := n.Kind()
	switch {
	case identifierKinds[kind]:
		return types.NodeIdentifier
	case commentKinds[kind]:
		return types.NodeComment
	case stringKinds[kind]:
		return types.NodeStringLiteral
	default:
		return types.NodeOther
	}
}
