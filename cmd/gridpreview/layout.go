package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/ui"
)

// layoutCmd represents the layout command
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Manage saved grid layouts",
	Long:  `List, show and delete the layouts saved from the preview with the s key.`,
}

var layoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved layouts",
	Args:  cobra.NoArgs,
	RunE:  runLayoutList,
}

var layoutShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved layout as a grid",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayoutShow,
}

var layoutDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved layout and the uploads only it used",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayoutDelete,
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.AddCommand(layoutListCmd)
	layoutCmd.AddCommand(layoutShowCmd)
	layoutCmd.AddCommand(layoutDeleteCmd)
}

func openApp() (*app, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func runLayoutList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.layouts.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		ui.PrintInfo("No saved layouts", a.layouts.Dir())
		return nil
	}

	ui.PrintHighlight("Saved Layouts")
	for _, name := range names {
		layout, err := a.layouts.Load(name)
		if err != nil || layout == nil {
			fmt.Printf("  %s %s\n", name, ui.Red("(unreadable)"))
			continue
		}
		account := layout.Username
		if account == "" {
			account = "-"
		}
		fmt.Printf("  %-20s %-20s %2d cells  %s\n",
			name, account, len(layout.Cells), layout.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runLayoutShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	layout, err := a.layouts.Load(args[0])
	if err != nil {
		return err
	}
	if layout == nil {
		return fmt.Errorf("no saved layout named %q", args[0])
	}

	capacity := layout.Capacity
	if capacity <= 0 {
		capacity = a.cfg.Grid.Capacity
	}
	state := grid.Restore(grid.NewState(capacity, a.cfg.Grid.QuotaLimit), layout.Cells)

	if layout.Username != "" {
		ui.PrintInfo("Account", layout.Username)
	}
	ui.WriteGrid(os.Stdout, state)
	return nil
}

func runLayoutDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.layouts.Exists(args[0]) {
		return fmt.Errorf("no saved layout named %q", args[0])
	}
	if err := a.layouts.Delete(args[0]); err != nil {
		return err
	}
	pruneUploads(a)
	ui.PrintSuccess("Layout deleted: " + args[0])
	return nil
}
