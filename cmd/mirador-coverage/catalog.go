package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-coverage/internal/catalog"
)

var (
	catalogDir    string
	searchKeyword string
	integration   string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the integration metric catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}
		dir := cfg.Catalog.Dir
		if catalogDir != "" {
			dir = catalogDir
		}
		idx, _ := catalog.Load(dir, logger)

		out := cmd.OutOrStdout()
		switch {
		case searchKeyword != "":
			return writeJSON(out, idx.SearchByKeyword(searchKeyword))
		case integration != "":
			detail, ok := idx.Detail(integration)
			if !ok {
				return writeJSON(out, map[string]any{"integration": integration, "found": false})
			}
			return writeJSON(out, detail)
		default:
			return writeJSON(out, idx.Summary())
		}
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogDir, "dir", "", "catalog directory (overrides catalog.dir)")
	catalogCmd.Flags().StringVarP(&searchKeyword, "search", "s", "", "list metrics matching a keyword")
	catalogCmd.Flags().StringVarP(&integration, "integration", "i", "", "show one integration's prefixes and metric definitions")
	rootCmd.AddCommand(catalogCmd)
}
