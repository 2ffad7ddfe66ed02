package types

import (
	"fmt"
	"sort"
)

// Common system-wide constants
const (
	// File size limits
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB per file - standard limit for scanning
	// Rationale: Prevents memory exhaustion from large
	// generated files while covering 99.9% of source files.
	// Larger files are typically binaries or generated code.

	// Workspace limits
	DefaultMaxFileCount = 50000 // Maximum files tracked in a single workspace
	// Rationale: Covers large monorepos while preventing
	// runaway enumeration of node_modules or vendor trees
	// that escaped the exclude patterns.

	// Binary detection optimization threshold
	BinaryPreCheckSizeThreshold = 100 * 1024 // 100KB - files above this size get pre-checked for binary content
	// Rationale: Reading the first 512 bytes to detect binary
	// files is cheaper than loading the entire file into memory.
	BinaryPreCheckBytes = 512 // Number of bytes to read for binary magic number detection
)

// FileID identifies a file in the workspace file table. IDs are assigned in
// lexicographic path order and are stable for the lifetime of a snapshot.
type FileID uint32

// Position is a (file, byte offset) pair. Immutable, compared by value.
type Position struct {
	File   FileID
	Offset uint32
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.File, p.Offset)
}

// SymbolKind classifies a binding site.
type SymbolKind uint8

const (
	KindLocal SymbolKind = iota
	KindParam
	KindFunc
	KindMethod
	KindType
	KindField
	KindConst
	KindVar
	KindModule
)

func (k SymbolKind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindParam:
		return "param"
	case KindFunc:
		return "function"
	case KindMethod:
		return "method"
	case KindType:
		return "type"
	case KindField:
		return "field"
	case KindConst:
		return "constant"
	case KindVar:
		return "variable"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// IsLocal reports whether the kind binds inside a single function body,
// which bounds its visibility to the defining file regardless of the
// language's export rules.
func (k SymbolKind) IsLocal() bool {
	return k == KindLocal || k == KindParam
}

// Visibility is the widest region from which a definition can be named.
type Visibility uint8

const (
	// VisibilityPrivate: the enclosing module's files only.
	VisibilityPrivate Visibility = iota
	// VisibilityPackage: the enclosing compilation unit (source root).
	VisibilityPackage
	// VisibilityPublic: the whole reachable workspace.
	VisibilityPublic
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityPackage:
		return "package"
	case VisibilityPublic:
		return "public"
	default:
		return "unknown"
	}
}

// NodeClass is the coarse classification of a syntax node at a candidate
// offset. Only Identifier nodes can become usages; everything else is
// discarded before semantic resolution.
type NodeClass uint8

const (
	NodeIdentifier NodeClass = iota
	NodeComment
	NodeStringLiteral
	NodeOther
)

func (c NodeClass) String() string {
	switch c {
	case NodeIdentifier:
		return "identifier"
	case NodeComment:
		return "comment"
	case NodeStringLiteral:
		return "string"
	case NodeOther:
		return "other"
	default:
		return "unknown"
	}
}

// Definition identifies a binding site. Pos is the position of the binding's
// name token; every Definition has exactly one canonical declaring Position,
// and identity checks compare Pos, never Name.
type Definition struct {
	Name       string
	Pos        Position
	End        uint32 // end byte offset of the name token (exclusive)
	Kind       SymbolKind
	Visibility Visibility
}

// ContainsOffset reports whether off falls inside the declaring name token.
func (d Definition) ContainsOffset(f FileID, off uint32) bool {
	return f == d.Pos.File && off >= d.Pos.Offset && off < d.End
}

func (d Definition) String() string {
	return fmt.Sprintf("%s %s@%s", d.Kind, d.Name, d.Pos)
}

// Reference is an occurrence that names some definition. The resolution link
// is weak: it is computed on demand by the resolver and never cached here.
type Reference struct {
	Name string
	Pos  Position
}

// Usage is a Reference proven to resolve to the queried Definition, paired
// with enough context for display.
type Usage struct {
	Ref           Reference
	Path          string
	Line          int // 1-based
	Column        int // 1-based, in bytes
	Snippet       string
	Container     string // name of the innermost enclosing declaration, if any
	IsDeclaration bool
}

// RestrictionKind selects the caller-supplied scope restriction.
type RestrictionKind uint8

const (
	RestrictWorkspace RestrictionKind = iota
	RestrictSingleFile
	RestrictExcludeTests
)

func (r RestrictionKind) String() string {
	switch r {
	case RestrictWorkspace:
		return "workspace"
	case RestrictSingleFile:
		return "single-file"
	case RestrictExcludeTests:
		return "exclude-tests"
	default:
		return "unknown"
	}
}

// Restriction narrows where usages are searched for. File is only meaningful
// for RestrictSingleFile.
type Restriction struct {
	Kind RestrictionKind
	File FileID
}

// SearchScope is the set of files over which textual scanning is allowed:
// either an explicit file set or the whole workspace. The zero value is the
// empty scope.
type SearchScope struct {
	entire bool
	files  map[FileID]struct{}
}

// EntireWorkspace returns the scope covering every workspace file.
func EntireWorkspace() SearchScope {
	return SearchScope{entire: true}
}

// ScopeOf returns a scope containing exactly the given files.
func ScopeOf(files ...FileID) SearchScope {
	s := SearchScope{files: make(map[FileID]struct{}, len(files))}
	for _, f := range files {
		s.files[f] = struct{}{}
	}
	return s
}

// IsEntire reports whether the scope is the whole-workspace marker.
func (s SearchScope) IsEntire() bool { return s.entire }

// IsEmpty reports whether no file can match. An empty scope is a valid
// result (visibility and restriction did not overlap), not an error.
func (s SearchScope) IsEmpty() bool { return !s.entire && len(s.files) == 0 }

// Len returns the explicit file count; 0 for the whole-workspace marker.
func (s SearchScope) Len() int { return len(s.files) }

// Contains reports whether f is inside the scope.
func (s SearchScope) Contains(f FileID) bool {
	if s.entire {
		return true
	}
	_, ok := s.files[f]
	return ok
}

// Intersect returns the intersection of two scopes. The whole-workspace
// marker is the identity element.
func (s SearchScope) Intersect(other SearchScope) SearchScope {
	if s.entire {
		return other
	}
	if other.entire {
		return s
	}
	small, large := s.files, other.files
	if len(large) < len(small) {
		small, large = large, small
	}
	out := SearchScope{files: make(map[FileID]struct{}, len(small))}
	for f := range small {
		if _, ok := large[f]; ok {
			out.files[f] = struct{}{}
		}
	}
	return out
}

// Files returns the explicit file set in ascending FileID order. Because
// FileIDs are assigned in lexicographic path order, this doubles as the
// deterministic scan order. Panics on the whole-workspace marker; callers
// must resolve that against the workspace file table first.
func (s SearchScope) Files() []FileID {
	if s.entire {
		panic("reflens: Files() on whole-workspace scope; resolve against the file table first")
	}
	out := make([]FileID, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
