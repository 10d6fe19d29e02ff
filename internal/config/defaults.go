package config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	recursive := true
	checkConnection := true
	return &Config{
		TFS: TFSConfig{
			APIVersion:      "6.0",
			Timeout:         "30s",
			CheckConnection: &checkConnection,
		},
		Output: OutputConfig{
			Directory:        "out",
			FileName:         "testcases.json",
			CombinedFileName: "all_testcases.json",
			Formats:          []string{"json"},
			Lock:             true,
		},
		Input: InputConfig{
			Include:   []string{"*.md", "*.txt"},
			Exclude:   []string{},
			Recursive: &recursive,
		},
		Steps: StepsConfig{
			MissingAction: "No action defined",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		DryRun: false,
	}
}
