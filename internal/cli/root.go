package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	dryRun  bool
	log     = logrus.New()
)

// rootCmd is the base command for tcexport.
var rootCmd = &cobra.Command{
	Use:   "tcexport",
	Short: "Export TFS test cases to JSON with shared steps resolved",
	Long: `tcexport reads Test Case work items from a TFS collection, expands the
Shared Steps they reference, strips HTML from every step and writes the
flattened test cases as JSON, one file per folder.

Everything is driven by a configuration file (tcexport.yaml).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tcexport.yaml", "config file path (.yaml, .json or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "resolve test cases but don't write files")

	log.SetOutput(colorable.NewColorableStderr())
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Execute runs the root command. An interrupt cancels the running export.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
