package resolver

import (
	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"

	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/types"
)

// jsTopLevel extracts top-level definitions from plain JavaScript with the
// pure-Go go-fAST parser. It returns ok=false when the file uses syntax the
// parser rejects (ES modules, JSX) or when a reported position cannot be
// reconciled with the source text; the caller then falls back to
// tree-sitter, whose byte offsets are authoritative.
func jsTopLevel(id types.FileID, content []byte) ([]types.Definition, bool) {
	program, err := parser.ParseFile(string(content))
	if err != nil {
		debug.LogResolve("js fast path: parse failed, falling back: %v", err)
		return nil, false
	}

	var defs []types.Definition
	for _, stmt := range program.Body {
		switch s := stmt.Stmt.(type) {
		case *ast.FunctionDeclaration:
			if s.Function == nil || s.Function.Name == nil {
				continue
			}
			d, ok := jsDef(id, content, s.Function.Name.Name, int(s.Function.Name.Idx), types.KindFunc)
			if !ok {
				return nil, false
			}
			defs = append(defs, d)

		case *ast.ClassDeclaration:
			if s.Class == nil || s.Class.Name == nil {
				continue
			}
			d, ok := jsDef(id, content, s.Class.Name.Name, int(s.Class.Name.Idx), types.KindType)
			if !ok {
				return nil, false
			}
			defs = append(defs, d)

		case *ast.VariableDeclaration:
			for _, decl := range s.List {
				if decl.Target == nil || decl.Target.Target == nil {
					continue
				}
				ident, isIdent := decl.Target.Target.(*ast.Identifier)
				if !isIdent {
					// Destructuring targets go through tree-sitter.
					return nil, false
				}
				kind := types.KindVar
				if decl.Initializer != nil && decl.Initializer.Expr != nil {
					switch decl.Initializer.Expr.(type) {
					case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
						kind = types.KindFunc
					}
				}
				d, ok := jsDef(id, content, ident.Name, int(ident.Idx), kind)
				if !ok {
					return nil, false
				}
				defs = append(defs, d)
			}
		}
	}
	return defs, true
}

// jsDef builds a definition whose position matches what tree-sitter would
// report for the same name token. go-fAST indexes are 1-based, so the
// offset is validated against the source and nudged if needed.
func jsDef(id types.FileID, content []byte, name string, idx int, kind types.SymbolKind) (types.Definition, bool) {
	off, ok := nameOffset(content, idx, name)
	if !ok {
		return types.Definition{}, false
	}
	vis := types.VisibilityPublic
	if len(name) > 0 && (name[0] == '_' || name[0] == '#') {
		vis = types.VisibilityPrivate
	}
	return types.Definition{
		Name:       name,
		Pos:        types.Position{File: id, Offset: off},
		End:        off + uint32(len(name)),
		Kind:       kind,
		Visibility: vis,
	}, true
}

func nameOffset(content []byte, idx int, name string) (uint32, bool) {
	for _, cand := range []int{idx - 1, idx} {
		if cand >= 0 && cand+len(name) <= len(content) && string(content[cand:cand+len(name)]) == name {
			return uint32(cand), true
		}
	}
	return 0, false
}
