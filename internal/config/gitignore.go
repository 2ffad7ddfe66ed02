package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// GitignoreParser reads a workspace's .gitignore and translates its patterns
// into the doublestar exclusion globs the workspace walker understands.
// Negation patterns are dropped: exclusions here only widen the skip set and
// un-ignoring a file would require full git semantics for no scanning gain.
type GitignoreParser struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	pattern   string
	negate    bool
	directory bool
	absolute  bool
}

// NewGitignoreParser creates an empty parser.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{}
}

// LoadGitignore loads patterns from <root>/.gitignore. A missing file is not
// an error.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	file, err := os.Open(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		gp.AddPattern(line)
	}
	return scanner.Err()
}

// AddPattern parses and adds a single gitignore line.
func (gp *GitignoreParser) AddPattern(line string) {
	var p gitignorePattern

	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.absolute = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		// A slash anywhere else also anchors the pattern to the root,
		// matching git's rule.
		p.absolute = true
	}

	p.pattern = line
	gp.patterns = append(gp.patterns, p)
}

// ExclusionPatterns returns the loaded patterns as doublestar globs relative
// to the workspace root.
func (gp *GitignoreParser) ExclusionPatterns() []string {
	var out []string
	for _, p := range gp.patterns {
		if p.negate {
			continue
		}
		out = append(out, p.asGlob())
	}
	return out
}

func (p gitignorePattern) asGlob() string {
	prefix := "**/"
	if p.absolute {
		prefix = ""
	}
	if p.directory {
		return prefix + p.pattern + "/**"
	}
	return prefix + p.pattern
}

// DirectoryPatterns returns the patterns that name directories, as glob
// trees; the walker uses these to prune whole subtrees without descending.
func (gp *GitignoreParser) DirectoryPatterns() []string {
	var out []string
	for _, p := range gp.patterns {
		if p.negate || !p.directory {
			continue
		}
		out = append(out, p.asGlob())
	}
	return out
}
