package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

const (
	envBaseURL = "TFS_BASE_URL"
	envProject = "TFS_PROJECT"
	envPAT     = "TFS_PAT"
)

// Config is the top-level configuration struct.
type Config struct {
	TFS     TFSConfig      `yaml:"tfs" json:"tfs" toml:"tfs"`
	Output  OutputConfig   `yaml:"output" json:"output" toml:"output"`
	Folders []FolderConfig `yaml:"folders" json:"folders" toml:"folders"`
	Input   InputConfig    `yaml:"input" json:"input" toml:"input"`
	Steps   StepsConfig    `yaml:"steps" json:"steps" toml:"steps"`
	Logging LoggingConfig  `yaml:"logging" json:"logging" toml:"logging"`
	DryRun  bool           `yaml:"dry_run" json:"dry_run" toml:"dry_run"`
}

type TFSConfig struct {
	BaseURL         string `yaml:"base_url" json:"base_url" toml:"base_url"`
	Project         string `yaml:"project" json:"project" toml:"project"`
	PAT             string `yaml:"pat" json:"pat" toml:"pat"`
	APIVersion      string `yaml:"api_version" json:"api_version" toml:"api_version"`
	Timeout         string `yaml:"timeout" json:"timeout" toml:"timeout"`
	Insecure        bool   `yaml:"insecure" json:"insecure" toml:"insecure"`
	CheckConnection *bool  `yaml:"check_connection" json:"check_connection" toml:"check_connection"` // pointer to distinguish unset from false
}

type OutputConfig struct {
	Directory        string   `yaml:"directory" json:"directory" toml:"directory"`
	FileName         string   `yaml:"file_name" json:"file_name" toml:"file_name"`
	SingleFile       bool     `yaml:"single_file" json:"single_file" toml:"single_file"`
	CombinedFileName string   `yaml:"combined_file_name" json:"combined_file_name" toml:"combined_file_name"`
	Formats          []string `yaml:"formats" json:"formats" toml:"formats"`
	Lock             bool     `yaml:"lock" json:"lock" toml:"lock"`
}

type FolderConfig struct {
	Name string `yaml:"name" json:"name" toml:"name"`
	IDs  []int  `yaml:"ids" json:"ids" toml:"ids"`
}

type InputConfig struct {
	IDsFile     string   `yaml:"ids_file" json:"ids_file" toml:"ids_file"`
	Directories []string `yaml:"directories" json:"directories" toml:"directories"`
	Include     []string `yaml:"include" json:"include" toml:"include"`
	Exclude     []string `yaml:"exclude" json:"exclude" toml:"exclude"`
	Recursive   *bool    `yaml:"recursive" json:"recursive" toml:"recursive"`
}

type StepsConfig struct {
	MissingAction string `yaml:"missing_action" json:"missing_action" toml:"missing_action"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" toml:"level"`
	Format string `yaml:"format" json:"format" toml:"format"`
	File   string `yaml:"file" json:"file" toml:"file"`
}

// Load reads a configuration file and returns a Config. The format is chosen
// by extension: .json and .toml are recognised, anything else is YAML.
// Environment overrides are applied after the file is decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("config", path, 0, "failed to read config file",
			"pass the config path with --config", joinKind(err))
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, domain.NewError("config", path, 0, "failed to parse config file", joinKind(err))
	}

	ApplyEnv(cfg)
	if err := expandPaths(cfg); err != nil {
		return nil, domain.NewError("config", path, 0, "failed to expand paths", joinKind(err))
	}
	return cfg, nil
}

// ApplyEnv overrides TFS connection settings from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(envBaseURL); v != "" {
		cfg.TFS.BaseURL = v
	}
	if v := os.Getenv(envProject); v != "" {
		cfg.TFS.Project = v
	}
	if v := os.Getenv(envPAT); v != "" {
		cfg.TFS.PAT = v
	}
}

// ShouldCheckConnection reports whether the connection probe is enabled.
func (c *Config) ShouldCheckConnection() bool {
	return c.TFS.CheckConnection == nil || *c.TFS.CheckConnection
}

// IsRecursive reports whether plan directories are scanned recursively.
func (c *Config) IsRecursive() bool {
	return c.Input.Recursive == nil || *c.Input.Recursive
}

// HasFormat reports whether the named output format is enabled.
func (c *Config) HasFormat(name string) bool {
	for _, f := range c.Output.Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.TFS.PAT != "" {
		c.TFS.PAT = "***"
	}
	return c
}

func expandPaths(cfg *Config) error {
	var err error
	if cfg.Output.Directory, err = homedir.Expand(cfg.Output.Directory); err != nil {
		return err
	}
	if cfg.Input.IDsFile, err = homedir.Expand(cfg.Input.IDsFile); err != nil {
		return err
	}
	if cfg.Logging.File, err = homedir.Expand(cfg.Logging.File); err != nil {
		return err
	}
	for i, dir := range cfg.Input.Directories {
		if cfg.Input.Directories[i], err = homedir.Expand(dir); err != nil {
			return err
		}
	}
	return nil
}

func joinKind(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrConfig, err)
}
