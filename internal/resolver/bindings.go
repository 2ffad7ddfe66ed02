package resolver

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
)

// scopeKinds lists the node kinds that open a lexical scope in at least one
// supported grammar. Bindings declared directly under a scope node are
// invisible outside it; a nested scope node is an opaque boundary when
// collecting bindings for its parent.
var scopeKinds = map[string]struct{}{
	// file roots
	"source_file":      {},
	"program":          {},
	"module":           {},
	"translation_unit": {},

	// function-like
	"function_declaration":           {},
	"function_definition":            {},
	"function_item":                  {},
	"func_literal":                   {},
	"function_expression":            {},
	"arrow_function":                 {},
	"generator_function":             {},
	"generator_function_declaration": {},
	"method_declaration":             {},
	"method_definition":              {},
	"constructor_definition":         {},
	"lambda":                         {},
	"closure_expression":             {},

	// type bodies
	"class_declaration":     {},
	"class_definition":      {},
	"class_specifier":       {},
	"interface_declaration": {},
	"impl_item":             {},
	"trait_item":            {},
	"namespace_declaration": {},
	"mod_item":              {},

	// blocks and block-introducing statements
	"block":              {},
	"statement_block":    {},
	"compound_statement": {},
	"declaration_list":   {},
	"if_statement":       {},
	"if_expression":      {},
	"for_statement":      {},
	"for_range_loop":     {},
	"for_in_statement":   {},
	"for_expression":     {},
	"while_statement":    {},
	"match_expression":   {},
	"switch_statement":   {},
	"catch_clause":       {},
	"except_clause":      {},
	"with_statement":     {},
}

func isScopeNode(n *tree_sitter.Node) bool {
	_, ok := scopeKinds[n.Kind()]
	return ok
}

// isFileScope reports whether n is the root scope of a file.
func isFileScope(n *tree_sitter.Node) bool {
	switch n.Kind() {
	case "source_file", "program", "module", "translation_unit":
		return n.Parent() == nil
	}
	return n.Parent() == nil
}

// bindingsOf returns the definitions a node introduces into its enclosing
// scope. Visibility is left as VisibilityPrivate; top-level entries are
// reclassified by the caller with visibilityOf.
func bindingsOf(pf *syntax.ParsedFile, n *tree_sitter.Node) []types.Definition {
	switch n.Kind() {
	case "function_declaration", "function_definition", "function_item",
		"generator_function_declaration":
		return nameFieldDef(pf, n, types.KindFunc)

	case "method_declaration", "method_definition", "constructor_definition":
		return nameFieldDef(pf, n, types.KindMethod)

	case "class_declaration", "class_definition", "class_specifier",
		"interface_declaration", "struct_item", "struct_specifier",
		"enum_declaration", "enum_item", "enum_specifier", "trait_item",
		"type_spec", "type_alias_declaration", "record_declaration",
		"union_item", "mod_item", "namespace_declaration":
		kind := types.KindType
		if n.Kind() == "mod_item" || n.Kind() == "namespace_declaration" {
			kind = types.KindModule
		}
		return nameFieldDef(pf, n, kind)

	case "const_spec", "const_item", "static_item", "const_declaration":
		// Go const_spec carries one or more names; Rust const_item one.
		if n.Kind() == "const_declaration" && pf.Lang == syntax.LangGo {
			return nil // names live on the child const_specs
		}
		return namedFieldDefs(pf, n, "name", types.KindConst)

	case "var_spec":
		return namedFieldDefs(pf, n, "name", types.KindLocal)

	case "short_var_declaration":
		return identifiersIn(pf, n.ChildByFieldName("left"), types.KindLocal)

	case "range_clause":
		return identifiersIn(pf, n.ChildByFieldName("left"), types.KindLocal)

	case "variable_declarator":
		// JS/TS/Java/C#; the name may be a destructuring pattern.
		return identifiersIn(pf, n.ChildByFieldName("name"), types.KindLocal)

	case "let_declaration":
		return identifiersIn(pf, n.ChildByFieldName("pattern"), types.KindLocal)

	case "assignment", "augmented_assignment":
		// Python binds on first assignment.
		if pf.Lang != syntax.LangPython {
			return nil
		}
		return identifiersIn(pf, n.ChildByFieldName("left"), types.KindLocal)

	case "named_expression":
		// Python walrus operator.
		return identifiersIn(pf, n.ChildByFieldName("name"), types.KindLocal)

	case "parameter_declaration", "variadic_parameter_declaration",
		"formal_parameter", "required_parameter", "optional_parameter",
		"default_parameter", "typed_parameter", "typed_default_parameter",
		"simple_parameter", "optional_type_parameter":
		defs := namedFieldDefs(pf, n, "name", types.KindParam)
		if len(defs) == 0 {
			defs = identifiersIn(pf, n, types.KindParam)
		}
		return defs

	case "parameter":
		// Rust parameters bind through a pattern; C++ through a declarator.
		if pat := n.ChildByFieldName("pattern"); pat != nil {
			return identifiersIn(pf, pat, types.KindParam)
		}
		return identifiersIn(pf, n, types.KindParam)

	case "identifier":
		// Bare identifiers are parameters only when the grammar puts them
		// directly under a parameter list (Python, JS, arrow functions).
		if p := n.Parent(); p != nil {
			switch p.Kind() {
			case "parameters", "formal_parameters", "lambda_parameters":
				return []types.Definition{defAt(pf, n, types.KindParam)}
			case "arrow_function":
				if eq(p.ChildByFieldName("parameter"), n) {
					return []types.Definition{defAt(pf, n, types.KindParam)}
				}
			}
		}
		return nil

	case "field_declaration", "property_declaration", "property_definition",
		"public_field_definition", "field_definition", "event_declaration":
		defs := namedFieldDefs(pf, n, "name", types.KindField)
		if len(defs) == 0 {
			defs = namedFieldDefs(pf, n, "declarator", types.KindField)
		}
		return defs

	case "for_statement":
		// Python for targets bind in the surrounding scope.
		if pf.Lang == syntax.LangPython {
			return identifiersIn(pf, n.ChildByFieldName("left"), types.KindLocal)
		}
		return nil

	case "catch_clause":
		return identifiersIn(pf, n.ChildByFieldName("parameter"), types.KindLocal)

	case "except_clause":
		if alias := n.ChildByFieldName("alias"); alias != nil {
			return identifiersIn(pf, alias, types.KindLocal)
		}
		return nil
	}
	return nil
}

func defAt(pf *syntax.ParsedFile, name *tree_sitter.Node, kind types.SymbolKind) types.Definition {
	return types.Definition{
		Name:       pf.Text(name),
		Pos:        types.Position{File: pf.File, Offset: uint32(name.StartByte())},
		End:        uint32(name.EndByte()),
		Kind:       kind,
		Visibility: types.VisibilityPrivate,
	}
}

// nameFieldDef extracts the single definition named by n's "name" field.
func nameFieldDef(pf *syntax.ParsedFile, n *tree_sitter.Node, kind types.SymbolKind) []types.Definition {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	if !isNameToken(name) {
		return identifiersInAs(pf, name, kind)
	}
	return []types.Definition{defAt(pf, name, kind)}
}

// namedFieldDefs extracts every child in the given field. Go var and const
// specs repeat the name field once per declared identifier.
func namedFieldDefs(pf *syntax.ParsedFile, n *tree_sitter.Node, field string, kind types.SymbolKind) []types.Definition {
	var defs []types.Definition
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if n.FieldNameForChild(uint32(i)) != field {
			continue
		}
		c := n.Child(i)
		if c == nil {
			continue
		}
		if isNameToken(c) {
			defs = append(defs, defAt(pf, c, kind))
		} else {
			defs = append(defs, identifiersInAs(pf, c, kind)...)
		}
	}
	return defs
}

// identifiersIn collects every identifier token under n, crossing pattern
// structure but never descending into value expressions named by a field
// other than the pattern itself. n may be nil.
func identifiersIn(pf *syntax.ParsedFile, n *tree_sitter.Node, kind types.SymbolKind) []types.Definition {
	return identifiersInAs(pf, n, kind)
}

func identifiersInAs(pf *syntax.ParsedFile, n *tree_sitter.Node, kind types.SymbolKind) []types.Definition {
	if n == nil {
		return nil
	}
	if isNameToken(n) {
		return []types.Definition{defAt(pf, n, kind)}
	}
	var defs []types.Definition
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier", "shorthand_property_identifier_pattern":
			defs = append(defs, defAt(pf, c, kind))
		case "tuple_pattern", "list_pattern", "array_pattern", "object_pattern",
			"pattern_list", "expression_list", "struct_pattern", "pair_pattern",
			"rest_pattern", "mut_pattern", "reference_pattern", "pattern":
			defs = append(defs, identifiersInAs(pf, c, kind)...)
		}
	}
	return defs
}

// memberAccessFields maps node kinds that hold a member name in one of
// their fields to that field's name. A name token in one of these
// positions refers through its receiver, not the lexical environment, so
// it must never resolve against enclosing scopes.
var memberAccessFields = map[string]string{
	"selector_expression":      "field",     // Go
	"attribute":                "attribute", // Python
	"member_expression":        "property",  // JavaScript, TypeScript
	"field_expression":         "field",     // Rust, C, C++
	"member_access_expression": "name",      // C#, PHP
	"field_access":             "field",     // Java
	"method_invocation":        "name",      // Java, receiver calls only
}

// isMemberName reports whether n sits in the member position of a member
// access or receiver call.
func isMemberName(n *tree_sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	field, ok := memberAccessFields[parent.Kind()]
	if !ok {
		return false
	}
	// Java's method_invocation covers bare calls too; only a call with a
	// receiver object is a member access.
	if parent.Kind() == "method_invocation" && parent.ChildByFieldName("object") == nil {
		return false
	}
	return eq(parent.ChildByFieldName(field), n)
}

func isNameToken(n *tree_sitter.Node) bool {
	switch n.Kind() {
	case "identifier", "field_identifier", "type_identifier",
		"property_identifier", "shorthand_property_identifier_pattern",
		"name":
		return true
	}
	return false
}

func eq(a, b *tree_sitter.Node) bool {
	return a != nil && b != nil && a.Id() == b.Id()
}
