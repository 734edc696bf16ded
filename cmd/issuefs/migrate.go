package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/issuefs/issuefs/internal/folder"
	"github.com/issuefs/issuefs/internal/ui"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the folder's on-disk layout up to date",
	Long: `Apply pending schema migrations to the ticket folder.

Opening a folder migrates it automatically; this command exists to run
migrations explicitly and report the resulting version.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f := openFolder(context.Background())
		fmt.Printf("%s Folder at version %d (current: %d)\n",
			ui.RenderPass("✓"), f.Version(), folder.CurrentVersion)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
