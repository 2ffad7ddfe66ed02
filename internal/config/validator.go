package config

import (
	"errors"
	"fmt"
	"runtime"

	reflerrors "github.com/standardbeagle/reflens/internal/errors"
)

// Validator validates configuration and sets smart defaults.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProject(&cfg.Project); err != nil {
		return reflerrors.NewConfigError("project", cfg.Project.Root, err)
	}
	if err := v.validateScan(&cfg.Scan); err != nil {
		return reflerrors.NewConfigError("scan", "", err)
	}
	if err := v.validateWatch(&cfg.Watch); err != nil {
		return reflerrors.NewConfigError("watch", "", err)
	}
	if err := v.validateSymbols(&cfg.Symbols); err != nil {
		return reflerrors.NewConfigError("symbols", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProject(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateScan(scan *Scan) error {
	if scan.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", scan.MaxFileSize)
	}
	if scan.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("max_file_size should not exceed 100MB, got %d", scan.MaxFileSize)
	}
	if scan.MaxFileCount <= 0 {
		return fmt.Errorf("max_file_count must be positive, got %d", scan.MaxFileCount)
	}
	if scan.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", scan.Workers)
	}
	return nil
}

func (v *Validator) validateWatch(watch *Watch) error {
	if watch.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms cannot be negative, got %d", watch.DebounceMs)
	}
	return nil
}

func (v *Validator) validateSymbols(symbols *Symbols) error {
	if symbols.MaxResults < 0 {
		return fmt.Errorf("max_results cannot be negative, got %d", symbols.MaxResults)
	}
	if symbols.FuzzyThreshold < 0 || symbols.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in [0,1], got %v", symbols.FuzzyThreshold)
	}
	if symbols.MinScore < 0 || symbols.MinScore > 1 {
		return fmt.Errorf("min_score must be in [0,1], got %v", symbols.MinScore)
	}
	return nil
}

// setSmartDefaults applies defaults that depend on the host system.
func (v *Validator) setSmartDefaults(cfg *Config) {
	// Workers above the core count gain nothing for CPU-bound scanning.
	if n := runtime.NumCPU(); cfg.Scan.Workers > n {
		cfg.Scan.Workers = n
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 300
	}
	if cfg.Symbols.MaxResults == 0 {
		cfg.Symbols.MaxResults = 20
	}
	if cfg.Symbols.FuzzyThreshold == 0 {
		cfg.Symbols.FuzzyThreshold = 0.7
	}
	if cfg.Symbols.StemMinLength == 0 {
		cfg.Symbols.StemMinLength = 3
	}
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
