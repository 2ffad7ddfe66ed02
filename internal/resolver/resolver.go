package resolver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/errors"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/workspace"
)

// Resolver answers "which definition does this name refer to" by walking
// lexical scopes bottom-up, innermost binding first, then falling back to
// the directory module, the source root, and finally workspace-public
// definitions. Top-level tables are built lazily per file and memoized
// until invalidated.
type Resolver struct {
	view     *syntax.View
	ws       *workspace.Workspace
	provider *workspace.Provider
	modules  *moduleTable
}

func New(view *syntax.View, ws *workspace.Workspace, provider *workspace.Provider) *Resolver {
	return &Resolver{
		view:     view,
		ws:       ws,
		provider: provider,
		modules:  newModuleTable(view, ws, provider),
	}
}

// DefinitionAt maps a cursor offset to the definition it names. The offset
// may sit on the declaring name token itself or on any reference to it.
func (r *Resolver) DefinitionAt(pf *syntax.ParsedFile, offset uint32) (types.Definition, bool, error) {
	node := pf.NodeAt(offset)
	if node == nil {
		return types.Definition{}, false, errors.NewResolveError(
			types.Position{File: pf.File, Offset: offset}, "", errors.ErrNoSymbolAtCursor)
	}
	if syntax.Classify(node) != types.NodeIdentifier {
		return types.Definition{}, false, nil
	}

	// Cursor on a declaration name: the node's own parent chain introduces it.
	if def, ok := r.declarationFor(pf, node); ok {
		return def, true, nil
	}

	def, ok := r.ResolveReference(pf, node)
	if !ok {
		return types.Definition{}, false, nil
	}
	// A cursor on the member position of s.x must not pick up a
	// same-named lexical binding; without type information the member
	// cannot be resolved at all.
	if isMemberName(node) && def.Kind != types.KindField && def.Kind != types.KindMethod {
		return types.Definition{}, false, nil
	}
	return def, true, nil
}

// declarationFor checks whether node is itself the name token of a
// declaration and returns the corresponding definition.
func (r *Resolver) declarationFor(pf *syntax.ParsedFile, node *tree_sitter.Node) (types.Definition, bool) {
	off := uint32(node.StartByte())
	for anc := node.Parent(); anc != nil; anc = anc.Parent() {
		for _, d := range bindingsOf(pf, anc) {
			if d.ContainsOffset(pf.File, off) {
				owner := enclosingScope(anc)
				if owner == nil || isFileScope(owner) {
					// Rebindings at file scope canonicalize to the first
					// binding of the name.
					if canon, ok := r.lookupInScope(pf, pf.Root(), d.Name, d.Pos.Offset); ok {
						return canon, true
					}
					return classifyTopLevel(pf, d), true
				}
				return d, true
			}
		}
		if isScopeNode(anc) {
			// A name token never sits more than a couple of levels above
			// its declaration node; crossing a scope means it was a use.
			break
		}
	}
	return types.Definition{}, false
}

// ResolveReference resolves an identifier node to its definition using
// innermost-wins lexical lookup, then the module fallback chain.
func (r *Resolver) ResolveReference(pf *syntax.ParsedFile, node *tree_sitter.Node) (types.Definition, bool) {
	name := pf.Text(node)
	if name == "" {
		return types.Definition{}, false
	}
	useOff := uint32(node.StartByte())

	if def, ok := r.resolveLexical(pf, node, name, useOff); ok {
		return def, true
	}
	return r.resolveModuleChain(pf, name)
}

// resolveLexical walks the ancestor scopes of node from the inside out.
func (r *Resolver) resolveLexical(pf *syntax.ParsedFile, node *tree_sitter.Node, name string, useOff uint32) (types.Definition, bool) {
	for scope := enclosingScope(node); scope != nil; scope = enclosingScope(scope) {
		if def, ok := r.lookupInScope(pf, scope, name, useOff); ok {
			return def, true
		}
	}
	return types.Definition{}, false
}

// lookupInScope finds the binding for name declared directly in scope.
// Locals must be declared at or before the use offset unless the scope is
// the file root, where order is immaterial; functions, types, methods and
// constants hoist in every language we handle.
func (r *Resolver) lookupInScope(pf *syntax.ParsedFile, scope *tree_sitter.Node, name string, useOff uint32) (types.Definition, bool) {
	fileScope := isFileScope(scope)
	var best types.Definition
	found := false
	for _, d := range collectScopeBindings(pf, scope) {
		if d.Name != name {
			continue
		}
		// Locals only bind from their declaration onward; everything else
		// hoists, and file roots are order-independent in every language
		// we handle.
		if d.Kind.IsLocal() && !fileScope && d.Pos.Offset > useOff {
			continue
		}
		// Inside a function the latest redeclaration shadows earlier ones.
		// At file scope the first binding is canonical and later writes to
		// the same name count as usages of it.
		if !found {
			best, found = d, true
		} else if fileScope && d.Pos.Offset < best.Pos.Offset {
			best = d
		} else if !fileScope && d.Pos.Offset > best.Pos.Offset {
			best = d
		}
	}
	if !found {
		return types.Definition{}, false
	}
	if fileScope {
		best = classifyTopLevel(pf, best)
	}
	debug.LogResolve("lexical hit %s in %s scope of %s", name, scope.Kind(), pf.Path)
	return best, true
}

// collectScopeBindings gathers everything declared directly in scope. The
// walk stops at nested scope nodes after harvesting the binding the nested
// node itself introduces (a function declares its name in the scope that
// contains it, not in its own body).
func collectScopeBindings(pf *syntax.ParsedFile, scope *tree_sitter.Node) []types.Definition {
	var defs []types.Definition
	defs = append(defs, ownBindings(pf, scope)...)
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		count := n.NamedChildCount()
		for i := uint(0); i < count; i++ {
			c := n.NamedChild(i)
			if c == nil {
				continue
			}
			defs = append(defs, bindingsOf(pf, c)...)
			if isScopeNode(c) {
				continue
			}
			walk(c)
		}
	}
	walk(scope)
	return defs
}

// ownBindings returns the bindings a scope node introduces into itself
// rather than its parent: parameters and receivers of function-like scopes.
func ownBindings(pf *syntax.ParsedFile, scope *tree_sitter.Node) []types.Definition {
	switch scope.Kind() {
	case "method_declaration":
		// Go receiver.
		if recv := scope.ChildByFieldName("receiver"); recv != nil {
			return identifiersIn(pf, recv, types.KindParam)
		}
	case "for_statement", "for_expression", "for_in_statement", "for_range_loop":
		// Loop headers bind into the loop body.
		if left := scope.ChildByFieldName("left"); left != nil {
			return identifiersIn(pf, left, types.KindLocal)
		}
		if init := scope.ChildByFieldName("initializer"); init != nil {
			return bindingsOf(pf, init)
		}
	}
	return nil
}

func enclosingScope(n *tree_sitter.Node) *tree_sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if isScopeNode(p) {
			return p
		}
	}
	return nil
}

// resolveModuleChain falls back to increasingly wide top-level tables:
// same directory module, then package-visible names under the source root,
// then public names anywhere in the workspace.
func (r *Resolver) resolveModuleChain(pf *syntax.ParsedFile, name string) (types.Definition, bool) {
	dir := r.ws.ModuleOf(pf.File)
	if def, ok := r.modules.lookup(dir, name, types.VisibilityPrivate); ok {
		debug.LogResolve("module hit %s in %s", name, dir)
		return def, true
	}
	root := r.ws.SourceRootOf(pf.File)
	if def, ok := r.modules.lookupUnder(root, name, types.VisibilityPackage); ok {
		debug.LogResolve("package hit %s under %s", name, root)
		return def, true
	}
	if def, ok := r.modules.lookupUnder(".", name, types.VisibilityPublic); ok {
		debug.LogResolve("public hit %s", name)
		return def, true
	}
	return types.Definition{}, false
}

// Matches reports whether the identifier node resolves to exactly target.
// A lexical hit decides immediately; otherwise the module fallback chain
// runs, so a same-named private definition in the candidate's own module
// correctly shadows a more distant target.
func (r *Resolver) Matches(pf *syntax.ParsedFile, node *tree_sitter.Node, target types.Definition) bool {
	name := pf.Text(node)
	if name != target.Name {
		return false
	}
	// A name in member position (s.x, obj.attr) refers through its
	// receiver; it can never be a usage of a lexically resolved target.
	// Fields and methods may legitimately sit there, so those targets
	// still go through resolution.
	if isMemberName(node) {
		switch target.Kind {
		case types.KindField, types.KindMethod:
		default:
			return false
		}
	}
	useOff := uint32(node.StartByte())
	if def, ok := r.resolveLexical(pf, node, name, useOff); ok {
		return def.Pos == target.Pos
	}
	if target.Kind.IsLocal() {
		return false
	}
	if !r.reachable(pf.File, target) {
		return false
	}
	if def, ok := r.resolveModuleChain(pf, name); ok {
		return def.Pos == target.Pos
	}
	return false
}

// reachable reports whether target's visibility admits references from file.
func (r *Resolver) reachable(file types.FileID, target types.Definition) bool {
	switch target.Visibility {
	case types.VisibilityPrivate:
		return r.ws.ModuleOf(file) == r.ws.ModuleOf(target.Pos.File)
	case types.VisibilityPackage:
		return r.ws.SourceRootOf(file) == r.ws.SourceRootOf(target.Pos.File)
	default:
		return true
	}
}

// EnclosingDefinitions returns the named declarations containing offset,
// innermost first. Used for display breadcrumbs.
func (r *Resolver) EnclosingDefinitions(pf *syntax.ParsedFile, offset uint32) []types.Definition {
	node := pf.NodeAt(offset)
	if node == nil {
		return nil
	}
	var out []types.Definition
	for anc := node.Parent(); anc != nil; anc = anc.Parent() {
		for _, d := range bindingsOf(pf, anc) {
			switch d.Kind {
			case types.KindFunc, types.KindMethod, types.KindType, types.KindModule:
				out = append(out, d)
			}
		}
	}
	return out
}

// FileDefinitions returns every definition declared anywhere in the file,
// top-level entries classified for visibility. Feeds the symbol index.
func (r *Resolver) FileDefinitions(pf *syntax.ParsedFile) []types.Definition {
	var defs []types.Definition
	root := pf.Root()
	if root == nil {
		return nil
	}
	var walk func(n *tree_sitter.Node, topLevel bool)
	walk = func(n *tree_sitter.Node, topLevel bool) {
		count := n.NamedChildCount()
		for i := uint(0); i < count; i++ {
			c := n.NamedChild(i)
			if c == nil {
				continue
			}
			for _, d := range bindingsOf(pf, c) {
				if topLevel {
					d = classifyTopLevel(pf, d)
				}
				defs = append(defs, d)
			}
			walk(c, topLevel && !isScopeNode(c))
		}
	}
	walk(root, true)
	return defs
}

// Invalidate drops memoized top-level tables for the given files. The
// watcher calls this on every change batch.
func (r *Resolver) Invalidate(ids []types.FileID) {
	r.modules.invalidate(ids)
}

// classifyTopLevel attaches language-specific visibility to a top-level
// definition. A variable binding at file scope is promoted to KindVar so
// the kind no longer clips its scope to the defining file.
func classifyTopLevel(pf *syntax.ParsedFile, d types.Definition) types.Definition {
	if d.Kind == types.KindParam {
		return d
	}
	if d.Kind == types.KindLocal {
		d.Kind = types.KindVar
	}
	d.Visibility = visibilityOf(pf, d)
	return d
}

// visibilityOf applies per-language export rules to a top-level name.
func visibilityOf(pf *syntax.ParsedFile, d types.Definition) types.Visibility {
	switch pf.Lang {
	case syntax.LangGo:
		first, _ := utf8.DecodeRuneInString(d.Name)
		if unicode.IsUpper(first) {
			return types.VisibilityPublic
		}
		// Unexported Go names are shared across the package directory.
		return types.VisibilityPrivate

	case syntax.LangPython:
		if strings.HasPrefix(d.Name, "_") {
			return types.VisibilityPrivate
		}
		return types.VisibilityPublic

	case syntax.LangRust:
		return rustVisibility(pf, d)

	case syntax.LangJavaScript, syntax.LangTypeScript:
		if isExportedJS(pf, d) {
			return types.VisibilityPublic
		}
		if fileHasExports(pf) {
			return types.VisibilityPrivate
		}
		// Script files have no export surface; their globals leak, so only
		// the conventional underscore and hash prefixes stay private.
		if strings.HasPrefix(d.Name, "_") || strings.HasPrefix(d.Name, "#") {
			return types.VisibilityPrivate
		}
		return types.VisibilityPublic

	case syntax.LangJava, syntax.LangCSharp:
		return modifierVisibility(pf, d)

	case syntax.LangZig:
		if hasKeywordChild(pf, d, "pub") {
			return types.VisibilityPublic
		}
		return types.VisibilityPrivate

	case syntax.LangCpp:
		if hasKeywordChild(pf, d, "static") {
			return types.VisibilityPrivate
		}
		return types.VisibilityPublic

	case syntax.LangPHP:
		return types.VisibilityPublic
	}
	return types.VisibilityPublic
}

func declarationNodeOf(pf *syntax.ParsedFile, d types.Definition) *tree_sitter.Node {
	node := pf.NodeAt(d.Pos.Offset)
	if node == nil {
		return nil
	}
	return node.Parent()
}

func rustVisibility(pf *syntax.ParsedFile, d types.Definition) types.Visibility {
	decl := declarationNodeOf(pf, d)
	for n := decl; n != nil && !isFileScope(n); n = n.Parent() {
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			c := n.Child(i)
			if c == nil || c.Kind() != "visibility_modifier" {
				continue
			}
			if strings.Contains(pf.Text(c), "crate") {
				return types.VisibilityPackage
			}
			return types.VisibilityPublic
		}
		if isScopeNode(n) {
			break
		}
	}
	return types.VisibilityPrivate
}

func fileHasExports(pf *syntax.ParsedFile) bool {
	root := pf.Root()
	if root == nil {
		return false
	}
	count := root.NamedChildCount()
	for i := uint(0); i < count; i++ {
		if c := root.NamedChild(i); c != nil && c.Kind() == "export_statement" {
			return true
		}
	}
	return false
}

func isExportedJS(pf *syntax.ParsedFile, d types.Definition) bool {
	node := pf.NodeAt(d.Pos.Offset)
	for n := node; n != nil; n = n.Parent() {
		if n.Kind() == "export_statement" {
			return true
		}
	}
	return false
}

func modifierVisibility(pf *syntax.ParsedFile, d types.Definition) types.Visibility {
	decl := declarationNodeOf(pf, d)
	for n := decl; n != nil && !isScopeNode(n); n = n.Parent() {
		count := n.NamedChildCount()
		for i := uint(0); i < count; i++ {
			c := n.NamedChild(i)
			if c == nil || c.Kind() != "modifiers" {
				continue
			}
			text := pf.Text(c)
			switch {
			case strings.Contains(text, "public"):
				return types.VisibilityPublic
			case strings.Contains(text, "private"):
				return types.VisibilityPrivate
			default:
				return types.VisibilityPackage
			}
		}
	}
	// Java default access is package scoped.
	if pf.Lang == syntax.LangJava {
		return types.VisibilityPackage
	}
	return types.VisibilityPrivate
}

func hasKeywordChild(pf *syntax.ParsedFile, d types.Definition, kw string) bool {
	decl := declarationNodeOf(pf, d)
	for n := decl; n != nil && !isScopeNode(n); n = n.Parent() {
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			c := n.Child(i)
			if c != nil && pf.Text(c) == kw {
				return true
			}
		}
	}
	return false
}
