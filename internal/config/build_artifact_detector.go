// Build artifact detection from language-specific configuration files.
// Parses tsconfig.json, Cargo.toml, pyproject.toml to find output
// directories worth excluding from the scan scope.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector finds language-specific build output directories.
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a detector rooted at projectRoot.
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories scans for build configuration files and returns
// glob patterns to exclude (e.g. "**/dist/**"). Unreadable or malformed
// config files are silently skipped; detection is best-effort.
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string
	patterns = append(patterns, bad.detectTypeScriptOutputs()...)
	patterns = append(patterns, bad.detectRustOutputs()...)
	patterns = append(patterns, bad.detectPythonOutputs()...)
	return patterns
}

// detectTypeScriptOutputs reads compilerOptions.outDir from tsconfig.json.
func (bad *BuildArtifactDetector) detectTypeScriptOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "tsconfig.json"))
	if err != nil {
		return nil
	}

	var tsconfig struct {
		CompilerOptions struct {
			OutDir string `json:"outDir"`
		} `json:"compilerOptions"`
	}
	if json.Unmarshal(data, &tsconfig) != nil {
		return nil
	}
	if out := tsconfig.CompilerOptions.OutDir; out != "" {
		return []string{"**/" + filepath.ToSlash(filepath.Clean(out)) + "/**"}
	}
	return nil
}

// detectRustOutputs reads a custom target-dir from Cargo.toml. The default
// target/ directory is already in the built-in exclusions.
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "Cargo.toml"))
	if err != nil {
		return nil
	}

	var cargo struct {
		Build struct {
			TargetDir string `toml:"target-dir"`
		} `toml:"build"`
	}
	if toml.Unmarshal(data, &cargo) != nil {
		return nil
	}
	if dir := cargo.Build.TargetDir; dir != "" {
		return []string{"**/" + dir + "/**"}
	}
	return nil
}

// detectPythonOutputs reads build output directories from pyproject.toml.
func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}

	var pyproject struct {
		Tool struct {
			Hatch struct {
				Build struct {
					Directory string `toml:"directory"`
				} `toml:"build"`
			} `toml:"hatch"`
		} `toml:"tool"`
	}
	if toml.Unmarshal(data, &pyproject) != nil {
		return nil
	}
	if dir := pyproject.Tool.Hatch.Build.Directory; dir != "" {
		return []string{"**/" + dir + "/**"}
	}
	return nil
}

// DeduplicatePatterns removes duplicate exclusion patterns, preserving the
// first occurrence's order.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}
	return result
}
