package config

import (
	"os"
	"runtime"

	"github.com/standardbeagle/reflens/internal/types"
)

// Config is the engine configuration loaded from .refl.kdl. A global
// ~/.refl.kdl provides the base; the project file overrides it, except that
// exclude patterns from both are combined.
type Config struct {
	Version int
	Project Project
	Scan    Scan
	Watch   Watch
	Symbols Symbols
	Include []string
	Exclude []string
}

// Project identifies the workspace root the engine operates on.
type Project struct {
	Root string
	Name string
}

// Scan controls workspace enumeration and the textual candidate scanner.
type Scan struct {
	MaxFileSize      int64
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool
	Workers          int  // 0 = sequential scan; N > 0 fans out across N workers
	TrigramAccel     bool // opt-in in-memory trigram file filter
}

// Watch controls the fsnotify-based workspace watcher.
type Watch struct {
	Enabled    bool
	DebounceMs int
}

// Symbols controls the fuzzy workspace-symbol lookup.
type Symbols struct {
	MaxResults     int
	MinScore       float64
	FuzzyThreshold float64
	StemMinLength  int
}

// Load reads configuration for the given project root.
func Load(rootDir string) (*Config, error) {
	searchDir := rootDir
	if searchDir == "" {
		searchDir = "."
	}

	// Global base config from ~/.refl.kdl, if present.
	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	projectConfig, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}

	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cfg := Default()
	cfg.Project.Root = searchDir
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// Default returns the built-in configuration. Project.Root is left for the
// caller to fill in.
func Default() *Config {
	return &Config{
		Version: 1,
		Scan: Scan{
			MaxFileSize:      types.DefaultMaxFileSize,
			MaxFileCount:     types.DefaultMaxFileCount,
			FollowSymlinks:   false,
			RespectGitignore: true,
			Workers:          0,
			TrigramAccel:     false,
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMs: 300,
		},
		Symbols: Symbols{
			MaxResults:     20,
			MinScore:       0.2,
			FuzzyThreshold: 0.7,
			StemMinLength:  3,
		},
		Include: []string{},
		Exclude: defaultExclusions(),
	}
}

// defaultExclusions lists the patterns that are never worth scanning:
// VCS metadata, dependency trees, build output, binaries, caches.
func defaultExclusions() []string {
	return []string{
		// VCS metadata and hidden directories
		"**/.git/**",
		"**/.*/**",

		// Package managers & dependencies
		"**/node_modules/**",
		"**/vendor/**",
		"**/bower_components/**",
		"**/venv/**",
		"**/site-packages/**",

		// Build artifacts & output
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/target/**",
		"**/bin/**",
		"**/obj/**",
		"**/*.min.js",
		"**/*.min.css",
		"**/*.bundle.js",
		"**/*.min.map",

		// Compiled and binary formats
		"**/__pycache__/**",
		"**/*.pyc",
		"**/*.class",
		"**/*.o",
		"**/*.so",
		"**/*.dll",
		"**/*.exe",
		"**/*.wasm",
		"**/*.pdf",
		"**/*.zip",
		"**/*.tar.gz",
		"**/*.png",
		"**/*.jpg",
		"**/*.gif",
		"**/*.ico",
		"**/*.woff",
		"**/*.woff2",
		"**/*.ttf",

		// Editor temp files
		"**/*.swp",
		"**/*.swo",
		"**/*~",

		// OS files
		"**/Thumbs.db",
		"**/.DS_Store",
		"**/desktop.ini",

		// Caches & logs
		"**/.cache/**",
		"**/.next/**",
		"**/.nuxt/**",
		"**/.parcel-cache/**",
		"**/logs/**",
		"**/*.log",

		// Coverage artifacts
		"**/coverage/**",
		"**/.nyc_output/**",
		"**/htmlcov/**",
	}
}

// TestFileExclusions returns the glob patterns the ExcludeTests restriction
// applies on top of the configured scope, covering the test-file naming
// conventions of the supported languages.
func TestFileExclusions() []string {
	return []string{
		// Go
		"**/*_test.go",
		// Python
		"**/*_test.py",
		"**/test_*.py",
		// JavaScript/TypeScript
		"**/*.test.js",
		"**/*.test.ts",
		"**/*.test.tsx",
		"**/*.test.jsx",
		"**/*.spec.js",
		"**/*.spec.ts",
		"**/*.spec.tsx",
		"**/*.spec.jsx",
		// Java
		"**/*Test.java",
		"**/*Tests.java",
		// C#
		"**/*Test.cs",
		"**/*Tests.cs",
		// PHP
		"**/*Test.php",
		// Rust convention: integration tests live under tests/
		"**/tests/**",
		// Test directories
		"**/__tests__/**",
		"**/testdata/**",
	}
}

// mergeConfigs merges a base (global) config with a project config. Project
// values win; exclusions from both are combined and deduplicated.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		combined := make([]string, 0, len(base.Exclude)+len(project.Exclude))
		combined = append(combined, base.Exclude...)
		combined = append(combined, project.Exclude...)
		merged.Exclude = DeduplicatePatterns(combined)
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// language build configs under the project root and adds them to Exclude.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}

	detector := NewBuildArtifactDetector(c.Project.Root)
	detected := detector.DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}

// EffectiveWorkers resolves the configured worker count: 0 keeps the scan
// sequential, negative values are clamped, and anything above NumCPU gains
// nothing for CPU-bound byte scanning.
func (c *Config) EffectiveWorkers() int {
	w := c.Scan.Workers
	if w <= 0 {
		return 0
	}
	if n := runtime.NumCPU(); w > n {
		return n
	}
	return w
}
