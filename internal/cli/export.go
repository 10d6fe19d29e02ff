package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fjglira/tfs-testcase-exporter/internal/config"
	"github.com/fjglira/tfs-testcase-exporter/internal/exporter"
	"github.com/fjglira/tfs-testcase-exporter/internal/parser"
	"github.com/fjglira/tfs-testcase-exporter/internal/resolver"
	"github.com/fjglira/tfs-testcase-exporter/internal/scanner"
	"github.com/fjglira/tfs-testcase-exporter/internal/source"
	"github.com/fjglira/tfs-testcase-exporter/internal/workitem"
	"github.com/fjglira/tfs-testcase-exporter/internal/writer"
)

var (
	fixturesFile string
	folderNames  []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export test cases to JSON files",
	Long: `Loads the folder groupings, resolves every listed Test Case and writes the
results under the output directory. Work items that fail are reported and
skipped; the command fails only for configuration, source, connection or
write errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig(fixturesFile != "")
		if err != nil {
			return err
		}
		defer closeLog()

		log.Infof("Output directory: %s", cfg.Output.Directory)
		return runExport(cmd.Context(), cfg)
	},
}

func init() {
	exportCmd.Flags().StringVar(&fixturesFile, "fixtures", "", "read work items from a JSON snapshot instead of TFS")
	exportCmd.Flags().StringSliceVar(&folderNames, "folder", nil, "export only the named folder (repeatable)")
	rootCmd.AddCommand(exportCmd)
}

// runExport wires all components and runs the exporter.
func runExport(ctx context.Context, cfg *config.Config) error {
	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return err
	}

	s := scanner.NewScanner(cfg.IsRecursive())
	loader := source.NewLoader(s, parser.NewDefaultRegistry(), log)
	res := resolver.NewResolver(repo, log, resolver.WithMissingAction(cfg.Steps.MissingAction))

	w, err := writer.NewFileWriter(writer.Options{
		Root:             cfg.Output.Directory,
		FileName:         cfg.Output.FileName,
		CombinedFileName: cfg.Output.CombinedFileName,
		Markdown:         cfg.HasFormat("markdown"),
		DryRun:           cfg.DryRun,
	}, log)
	if err != nil {
		return err
	}

	exp := exporter.NewExporter(*cfg, loader, res, w, log, exporter.WithFolders(folderNames...))
	summary, err := exp.Export(ctx)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		log.Warnf("%d work item(s) could not be exported, see the errors above", summary.Failed)
	}
	return nil
}

// newRepository returns the snapshot repository when --fixtures is set and a
// TFS client otherwise. The client's connection is checked up front so that
// a bad URL or token fails the run instead of every work item.
func newRepository(ctx context.Context, cfg *config.Config) (workitem.Repository, error) {
	if fixturesFile != "" {
		log.Infof("Reading work items from %s", fixturesFile)
		return workitem.LoadSnapshot(fixturesFile)
	}

	var timeout time.Duration
	if cfg.TFS.Timeout != "" {
		// validated by config.Validate
		timeout, _ = time.ParseDuration(cfg.TFS.Timeout)
	}
	client, err := workitem.NewClient(workitem.ClientConfig{
		BaseURL:    cfg.TFS.BaseURL,
		Project:    cfg.TFS.Project,
		PAT:        cfg.TFS.PAT,
		APIVersion: cfg.TFS.APIVersion,
		Timeout:    timeout,
		Insecure:   cfg.TFS.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	if cfg.ShouldCheckConnection() {
		if err := client.CheckConnection(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.TFS.BaseURL, err)
		}
		log.Infof("Connected to %s", cfg.TFS.BaseURL)
	}
	return client, nil
}
