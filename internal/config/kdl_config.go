package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// ConfigFileName is the per-directory configuration file. The same name in
// the user's home directory acts as the global base config.
const ConfigFileName = ".refl.kdl"

// LoadKDL attempts to load configuration from <dir>/.refl.kdl. A missing
// file is not an error; it returns (nil, nil) so the caller can fall back.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, ConfigFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	cfg, err := ParseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Resolve the root relative to the directory holding the config file so
	// that `root "../src"` means what the file's author sees.
	if cfg.Project.Root != "" {
		if !filepath.IsAbs(cfg.Project.Root) {
			cfg.Project.Root = filepath.Join(dir, cfg.Project.Root)
		}
		cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	} else {
		if abs, err := filepath.Abs(dir); err == nil {
			cfg.Project.Root = abs
		} else {
			cfg.Project.Root = dir
		}
	}

	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// ParseKDL parses a .refl.kdl document into a Config seeded with defaults.
func ParseKDL(content string) (*Config, error) {
	cfg := Default()
	if cwd, err := os.Getwd(); err == nil {
		cfg.Project.Root = cwd
	}

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.MaxFileSize = int64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Scan.MaxFileSize = sz
						}
					}
				case "max_file_count":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.MaxFileCount = v
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Scan.FollowSymlinks = b
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Scan.RespectGitignore = b
					}
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.Workers = v
					}
				case "trigram_accel":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Scan.TrigramAccel = b
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
			// `watch true` shorthand with no children
			if len(n.Children) == 0 {
				if b, ok := firstBoolArg(n); ok {
					cfg.Watch.Enabled = b
				}
			}
		case "symbols":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Symbols.MaxResults = v
					}
				case "min_score":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Symbols.MinScore = v
					}
				case "fuzzy_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Symbols.FuzzyThreshold = v
					}
				case "stem_min_length":
					if v, ok := firstIntArg(cn); ok {
						cfg.Symbols.StemMinLength = v
					}
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			// An explicit exclude block replaces the built-in defaults; a
			// project that wants both lists them all.
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

// Helpers over the kdl-go document model.

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block format: exclude { "pattern1"; "pattern2" }; each child's name
	// is the string value.
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}
