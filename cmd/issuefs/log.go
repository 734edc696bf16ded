package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the folder's operation log",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f := openFolder(context.Background())
		contents, err := f.ReadLog()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Print(contents)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
