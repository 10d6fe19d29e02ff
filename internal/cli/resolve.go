package cli

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/fjglira/tfs-testcase-exporter/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Resolve one test case and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid work item id %q", args[0])
		}

		cfg, closeLog, err := loadConfig(fixturesFile != "")
		if err != nil {
			return err
		}
		defer closeLog()

		repo, err := newRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		res := resolver.NewResolver(repo, log, resolver.WithMissingAction(cfg.Steps.MissingAction))

		tc, err := res.ResolveTestCase(cmd.Context(), id)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(tc)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&fixturesFile, "fixtures", "", "read work items from a JSON snapshot instead of TFS")
	rootCmd.AddCommand(resolveCmd)
}
