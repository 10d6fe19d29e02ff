package cli

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/tfs-testcase-exporter/internal/config"
	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// configureLogger applies the logging section to l. The returned function
// closes the log file, if one was opened.
func configureLogger(l *logrus.Logger, cfg config.LoggingConfig, verbose bool) (func(), error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, domain.NewError("config", "", 0, "invalid logging.level", err)
		}
		level = parsed
	}
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File == "" {
		l.SetOutput(colorable.NewColorableStderr())
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("config", cfg.File, 0,
			"failed to open log file",
			"check logging.file or leave it empty to log to the console",
			err)
	}
	l.SetOutput(io.MultiWriter(colorable.NewColorableStderr(), f))
	return func() { _ = f.Close() }, nil
}

// loadConfig loads and validates the config file, applies command line
// overrides and configures the logger from it.
func loadConfig(offline bool) (*config.Config, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	validate := config.Validate
	if offline {
		validate = config.ValidateOffline
	}
	if err := validate(cfg); err != nil {
		return nil, nil, err
	}

	if dryRun {
		cfg.DryRun = true
	}

	closeLog, err := configureLogger(log, cfg.Logging, verbose)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("Loaded config from %s: %+v", cfgFile, cfg.Redacted())
	return cfg, closeLog, nil
}
