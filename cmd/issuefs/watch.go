package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/issuefs/issuefs/internal/engine"
	"github.com/issuefs/issuefs/internal/ui"
	"github.com/issuefs/issuefs/internal/watch"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the folder and sync when edits settle",
	Long: `Watch the ticket folder for local edits and run a full sync once
the folder has been quiet for the settle interval. Press Ctrl+C to
stop.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		f := openFolder(ctx)
		client := loadClient()

		// A fresh engine per pass, so each sync fetches a fresh issue
		// instead of reusing the instance-scoped cache.
		w := watch.New(f, watchSettle, func(ctx context.Context) error {
			return engine.New(f, client).Sync(ctx)
		})

		fmt.Printf("%s Watching %s (Ctrl+C to stop)\n", ui.RenderAccent("👁"), f.Path)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fatal("%v", err)
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle,
		"how long the folder must stay quiet before a sync fires")
	rootCmd.AddCommand(watchCmd)
}
