package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/issuefs/issuefs/internal/ui"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending local changes",
	Long: `Show what a push would send: files to upload, field values that
differ from the last sync, and the pending comment buffer. This is a
pure read; nothing is fetched or modified.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		f, eng := openEngine(ctx)

		status, err := eng.Status(ctx)
		if err != nil {
			fatal("%v", err)
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(status); err != nil {
				fatal("%v", err)
			}
			return
		}

		fmt.Printf("Ticket %s\n\n", ui.RenderAccent(f.Key))

		if len(status.ToUpload) == 0 && len(status.LocalDiffers) == 0 && status.NewComment == "" {
			fmt.Printf("%s Nothing to push\n", ui.RenderPass("✓"))
			return
		}

		if len(status.ToUpload) > 0 {
			fmt.Println("Files to upload:")
			for _, name := range status.ToUpload {
				fmt.Printf("  %s %s\n", ui.RenderWarn("+"), name)
			}
			fmt.Println()
		}

		if len(status.LocalDiffers) > 0 {
			fields := make([]string, 0, len(status.LocalDiffers))
			for field := range status.LocalDiffers {
				fields = append(fields, field)
			}
			sort.Strings(fields)

			fmt.Println("Changed fields:")
			for _, field := range fields {
				diff := status.LocalDiffers[field]
				fmt.Printf("  %s %s\n", ui.RenderWarn("~"), field)
				fmt.Printf("      %s %s\n", ui.RenderDim("was:"), diff.Original)
				fmt.Printf("      %s %s\n", ui.RenderDim("now:"), diff.Local)
			}
			fmt.Println()
		}

		if status.NewComment != "" {
			fmt.Println("Pending comment:")
			fmt.Printf("  %s\n", status.NewComment)
		}
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
