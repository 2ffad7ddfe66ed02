package syntax

import (
	"path/filepath"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifies a supported grammar.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangCpp        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangZig        Language = "zig"
	LangPHP        Language = "php"
	LangUnknown    Language = ""
)

// extensionLanguages maps file extensions to their grammar.
var extensionLanguages = map[string]Language{
	".go":    LangGo,
	".py":    LangPython,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".rs":    LangRust,
	".java":  LangJava,
	".cpp":   LangCpp,
	".cc":    LangCpp,
	".cxx":   LangCpp,
	".c":     LangCpp,
	".h":     LangCpp,
	".hpp":   LangCpp,
	".cs":    LangCSharp,
	".zig":   LangZig,
	".php":   LangPHP,
	".phtml": LangPHP,
}

// LanguageForPath returns the grammar for a file path, or LangUnknown.
func LanguageForPath(path string) Language {
	return extensionLanguages[filepath.Ext(path)]
}

// grammarLoaders defers the CGO grammar construction until a language is
// actually seen in a query; most workspaces touch two or three grammars.
var grammarLoaders = map[Language]func() *tree_sitter.Language{
	LangGo: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_go.Language())
	},
	LangPython: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_python.Language())
	},
	LangJavaScript: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	},
	LangTypeScript: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	},
	LangRust: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_rust.Language())
	},
	LangJava: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_java.Language())
	},
	LangCpp: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	},
	LangCSharp: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	},
	LangZig: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_zig.Language())
	},
	LangPHP: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	},
}

// SupportedLanguages returns every language with a registered grammar.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(grammarLoaders))
	for lang := range grammarLoaders {
		out = append(out, lang)
	}
	return out
}
