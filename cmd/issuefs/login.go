package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/issuefs/issuefs/internal/config"
	"github.com/issuefs/issuefs/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Configure the tracker connection",
	Long: `Prompt for the tracker URL, user, and API token and save them to
the user configuration. The token is read without echo.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fatal("%v", err)
		}

		reader := bufio.NewReader(os.Stdin)

		cfg.URL = promptLine(reader, "Tracker URL", cfg.URL)
		cfg.User = promptLine(reader, "User", cfg.User)

		fmt.Print("API token (hidden): ")
		token, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fatal("read token: %v", err)
		}
		if len(token) > 0 {
			cfg.Token = strings.TrimSpace(string(token))
		}

		if err := cfg.Save(); err != nil {
			fatal("%v", err)
		}

		p, _ := config.Path()
		fmt.Printf("%s Saved configuration to %s\n", ui.RenderPass("✓"), p)
	},
}

func promptLine(reader *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return current
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
