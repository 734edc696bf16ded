package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issuefs/issuefs/internal/config"
	"github.com/issuefs/issuefs/internal/engine"
	"github.com/issuefs/issuefs/internal/folder"
	"github.com/issuefs/issuefs/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Turn a directory into a synchronizable ticket folder",
	Long: `Initialize a ticket folder in the given directory (default: the
current directory).

The directory must be named after the ticket it represents, e.g.
PROJ-123. Initialization creates the metadata directory, the shared
object store, and both version-controlled trees. Run 'issuefs sync'
afterwards to pull the ticket's contents.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		f, err := folder.Init(context.Background(), dir, os.Stdout)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Initialized ticket folder for %s\n", ui.RenderPass("✓"), ui.RenderAccent(f.Key))
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone KEY [path]",
	Short: "Create a ticket folder and pull the ticket into it",
	Long: `Create a new directory named after the ticket key (or at the given
path), initialize it as a ticket folder, and run a full sync.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		key := strings.ToUpper(args[0])
		dir := key
		if len(args) > 1 {
			dir = args[1]
		}
		if base := filepath.Base(dir); !strings.EqualFold(base, key) {
			fatal("clone path %q must be named after ticket %s", dir, key)
		}

		cfg, err := config.Load()
		if err != nil {
			fatal("%v", err)
		}
		client, err := cfg.Client()
		if err != nil {
			fatal("%v", err)
		}

		if err := os.Mkdir(dir, 0o755); err != nil {
			fatal("%v", err)
		}

		ctx := context.Background()
		f, err := folder.Init(ctx, dir, os.Stdout)
		if err != nil {
			fatal("%v", err)
		}
		if err := engine.New(f, client).Sync(ctx); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Cloned %s into %s\n", ui.RenderPass("✓"), ui.RenderAccent(f.Key), dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cloneCmd)
}
