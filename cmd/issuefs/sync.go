package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/issuefs/issuefs/internal/ui"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch remote state into the shadow tree",
	Long: `Retrieve the remote issue, download changed attachments, render all
fields into the shadow tree, and publish the tracking ref. Your
working files are not touched; run 'issuefs merge' to apply.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, eng := openEngine(ctx)
		if err := eng.Fetch(ctx); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Fetched remote state\n", ui.RenderPass("✓"))
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge fetched remote state into the working tree",
	Long: `Merge the tracking ref into your working files. Uncommitted local
edits are preserved across the merge with a stash/pop cycle. Textual
conflicts are left in the files with standard conflict markers.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, eng := openEngine(ctx)
		if err := eng.Merge(ctx); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Merged remote state\n", ui.RenderPass("✓"))
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch and merge remote state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, eng := openEngine(ctx)
		if err := eng.Pull(ctx); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Pulled remote state\n", ui.RenderPass("✓"))
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local changes to the tracker",
	Long: `Upload new and modified files as attachments, submit the pending
comment buffer, and send changed field values in one batched update.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, eng := openEngine(ctx)
		if err := eng.Push(ctx); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Pushed local changes\n", ui.RenderPass("✓"))
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull remote state, then push local changes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		f, eng := openEngine(ctx)
		if err := eng.Sync(ctx); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Synchronized %s\n", ui.RenderPass("✓"), ui.RenderAccent(f.Key))
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(syncCmd)
}
