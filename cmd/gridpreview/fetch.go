package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/ui"
)

var fetchJSON bool

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <username>",
	Short: "Print the recent posts of an account",
	Long: `Fetch the recent posts of an account and print them, either as the grid
they would form or as the JSON the HTTP API returns.`,
	Example: `  gridpreview fetch natgeo
  gridpreview fetch natgeo --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the posts as JSON")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	client := newClient(cfg, logger.GetLogger())
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RapidAPI.Timeout)
	defer cancel()

	posts, err := client.FetchPosts(ctx, args[0])
	if err != nil {
		return err
	}

	if fetchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(posts)
	}

	if len(posts) == 0 {
		ui.PrintWarning("Username not found, please check the username.")
		return nil
	}

	state := grid.MergeFetched(grid.NewState(cfg.Grid.Capacity, cfg.Grid.QuotaLimit), imagesource.ToRecords(posts))
	ui.PrintInfo("Account", imagesource.SanitizeUsername(args[0]))
	ui.WriteGrid(os.Stdout, state)
	return nil
}
