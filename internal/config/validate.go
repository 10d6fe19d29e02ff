package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// Validate checks the Config for required fields and valid values.
func Validate(cfg *Config) error {
	return validate(cfg, true)
}

// ValidateOffline is Validate for runs that read work items from a snapshot
// file; the TFS base URL may be left unset.
func ValidateOffline(cfg *Config) error {
	return validate(cfg, false)
}

func validate(cfg *Config, online bool) error {
	var errs []string

	// TFS connection
	if cfg.TFS.BaseURL == "" {
		if online {
			errs = append(errs, "tfs.base_url must not be empty")
		}
	} else if u, err := url.Parse(cfg.TFS.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("tfs.base_url must be an absolute URL (got %q)", cfg.TFS.BaseURL))
	}
	if cfg.TFS.APIVersion == "" {
		errs = append(errs, "tfs.api_version must not be empty")
	}
	if cfg.TFS.Timeout != "" {
		if _, err := time.ParseDuration(cfg.TFS.Timeout); err != nil {
			errs = append(errs, fmt.Sprintf("tfs.timeout is not a valid duration: %v", err))
		}
	}

	// Output
	if cfg.Output.Directory == "" {
		errs = append(errs, "output.directory must not be empty")
	}
	if cfg.Output.FileName == "" {
		errs = append(errs, "output.file_name must not be empty")
	} else if strings.ContainsAny(cfg.Output.FileName, `/\`) {
		errs = append(errs, "output.file_name must be a bare file name")
	}
	if cfg.Output.SingleFile && cfg.Output.CombinedFileName == "" {
		errs = append(errs, "output.combined_file_name must not be empty when output.single_file is set")
	}
	if len(cfg.Output.Formats) == 0 {
		errs = append(errs, "output.formats must not be empty")
	}
	for _, f := range cfg.Output.Formats {
		switch strings.ToLower(f) {
		case "json", "markdown":
		default:
			errs = append(errs, fmt.Sprintf("output.formats entries must be json or markdown (got %q)", f))
		}
	}

	// Groupings
	seen := make(map[string]bool)
	for i, f := range cfg.Folders {
		if msg := checkFolderName(f.Name); msg != "" {
			errs = append(errs, fmt.Sprintf("folders[%d].name %s", i, msg))
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("folders[%d].name %q is duplicated", i, f.Name))
		}
		seen[f.Name] = true
		for _, id := range f.IDs {
			if id <= 0 {
				errs = append(errs, fmt.Sprintf("folders[%d].ids contains invalid id %d", i, id))
			}
		}
	}
	if len(cfg.Folders) == 0 && cfg.Input.IDsFile == "" && len(cfg.Input.Directories) == 0 {
		errs = append(errs, "no work items configured: set folders, input.ids_file or input.directories")
	}
	if len(cfg.Input.Directories) > 0 && len(cfg.Input.Include) == 0 {
		errs = append(errs, "input.include must not be empty when input.directories is set")
	}

	// Logging
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[cfg.Logging.Level] {
			errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
		}
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Sprintf("logging.format must be text or json (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return domain.NewError("config", "", 0, fmt.Sprintf("validation failed: %s", strings.Join(errs, "; ")), domain.ErrConfig)
	}

	return nil
}

// checkFolderName returns a problem description, or "" when name is usable
// as a single directory under the output root.
func checkFolderName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "must not be empty"
	case name == "." || name == "..":
		return fmt.Sprintf("must not be %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Sprintf("must not contain path separators (got %q)", name)
	}
	return ""
}
