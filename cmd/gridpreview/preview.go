package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/snapshot"
	"gridpreview/pkg/ui/tui"
)

var (
	previewLayout  string
	previewRestore bool
	previewUploads []string
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview [username]",
	Short: "Arrange images on an account's grid in the terminal",
	Long: `Open the interactive grid preview.

Keys:
  /        search username        u        add uploads (file paths)
  arrows   move cursor            enter    show or hide delete
  x        delete selected cell   [ ]      move an uploaded cell
  a        watch ad (reset quota) s        save layout
  q        quit

Uploaded images are copied into the upload directory. Images no longer used
by the grid or any saved layout are removed when the preview closes.`,
	Example: `  gridpreview preview natgeo
  gridpreview preview --layout spring --restore
  gridpreview preview natgeo --upload ./a.jpg --upload ./b.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVarP(&previewLayout, "layout", "l", snapshot.DefaultName, "layout name used by save and --restore")
	previewCmd.Flags().BoolVar(&previewRestore, "restore", false, "start from the saved layout")
	previewCmd.Flags().StringSliceVar(&previewUploads, "upload", nil, "images to add before the preview opens")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	// log lines would draw over the screen
	if cfg.Logging.File == "" {
		logger.SetLogger(logger.NewNopLogger())
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	username := ""
	if len(args) > 0 {
		username = args[0]
	}

	var notes []tui.LogMsg
	if previewRestore {
		layout, err := a.layouts.Load(previewLayout)
		if err != nil {
			return err
		}
		if layout == nil {
			notes = append(notes, tui.LogMsg{Level: "WARN", Message: "No saved layout named " + previewLayout})
		} else {
			a.engine.Restore(layout.Cells)
			if username == "" {
				username = layout.Username
			}
			notes = append(notes, tui.LogMsg{Level: "INFO", Message: fmt.Sprintf("Restored layout %q (%d cells)", layout.Name, len(layout.Cells))})
		}
	}

	if len(previewUploads) > 0 {
		if _, admitted, err := a.uploader.AddPaths(previewUploads); err != nil {
			notes = append(notes, tui.LogMsg{Level: "ERROR", Message: "Upload failed: " + err.Error()})
		} else {
			notes = append(notes, tui.LogMsg{Level: "INFO", Message: fmt.Sprintf("Added %d image(s)", admitted)})
		}
	}

	t := tui.NewTUI(tui.Deps{
		Engine:     a.engine,
		Source:     a.client,
		Uploads:    a.uploader,
		Layouts:    a.layouts,
		LayoutName: previewLayout,
		Username:   username,
		Timeout:    cfg.RapidAPI.Timeout,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	// Send blocks until the program is running
	go func() {
		for _, note := range notes {
			t.Log(note.Level, "%s", note.Message)
		}
	}()

	runErr := t.Start()

	pruneUploads(a)
	return runErr
}

// pruneUploads removes stored images referenced by neither the grid nor a
// saved layout
func pruneUploads(a *app) {
	keep, err := a.layouts.UploadRefs()
	if err != nil {
		a.log.WithError(err).Warn("Skipping upload cleanup")
		return
	}
	removed, err := a.uploader.Prune(keep...)
	if err != nil {
		a.log.WithError(err).Warn("Upload cleanup failed")
		return
	}
	if removed > 0 {
		a.log.InfoWithFields("Removed unused uploads", map[string]interface{}{"removed": removed})
	}
}
