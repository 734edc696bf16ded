package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/issuefs/issuefs/internal/config"
	"github.com/issuefs/issuefs/internal/engine"
	"github.com/issuefs/issuefs/internal/folder"
	"github.com/issuefs/issuefs/internal/tracker"
)

var rootCmd = &cobra.Command{
	Use:   "issuefs",
	Short: "Edit issue-tracker tickets as folders of plain-text files",
	Long: `issuefs renders a remote ticket into a folder of plain-text files
and synchronizes edits in both directions.

Each ticket folder keeps two version-controlled trees sharing one
object store: the files you edit, and a hidden shadow tree holding the
last-fetched remote state. Sync is fetch, merge, push: remote changes
are merged into your files with an ordinary three-way merge, and your
changes are uploaded back to the tracker.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// openFolder opens the ticket folder at the working directory, running
// pending migrations.
func openFolder(ctx context.Context) *folder.Folder {
	cwd, err := os.Getwd()
	if err != nil {
		fatal("%v", err)
	}
	f, err := folder.Open(ctx, cwd, os.Stdout)
	if err != nil {
		fatal("%v", err)
	}
	return f
}

// loadClient builds a tracker client from the user configuration.
func loadClient() tracker.Client {
	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}
	client, err := cfg.Client()
	if err != nil {
		fatal("%v", err)
	}
	return client
}

// openEngine opens the folder and builds a sync engine over the
// configured tracker.
func openEngine(ctx context.Context) (*folder.Folder, *engine.Engine) {
	f := openFolder(ctx)
	return f, engine.New(f, loadClient())
}
