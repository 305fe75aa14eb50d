package command

// root.go defines the root command for the tokenchat CLI.
// Global flags shared by every subcommand live here.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	backendURL string // global flag for the chatd backend URL
	adminToken string // admin JWT, from flag or TOKENCHAT_ADMIN_TOKEN
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tokenchat",
	Short: "tokenchat - ephemeral per-token chat from the terminal",
	Long: `tokenchat is a terminal client for the tokenchat backend. Chat rooms are
derived from a site name and a contract address; messages are ephemeral and
expire five minutes after they are sent. You can use this tool to:
- Join a chat room and talk in real time
- React to messages with the supported emoji set
- Check whether a username or contract address is valid
- Moderate the backend (block users, inspect security stats)

Use "tokenchat <command> -h" to see all available commands.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "http://localhost:8090", "chatd backend URL")

	// The admin token can also come from the environment so scripted
	// moderation does not have to pass it on every call.
	if env := os.Getenv("TOKENCHAT_ADMIN_TOKEN"); env != "" {
		adminToken = env
	}
}
