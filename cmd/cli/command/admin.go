package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokenchat/cmd/cli/command/client"
	"tokenchat/internal/auth"
)

// admin.go drives chatd's moderation surface. All subcommands except login
// and hash-password need a JWT, via --token or TOKENCHAT_ADMIN_TOKEN.

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Backend moderation commands",
	Long:  `Moderate the chatd backend: block users, inspect security stats, and sweep channels.`,
}

var adminLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange the admin password for a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			return fmt.Errorf("--password is required")
		}

		token, err := client.NewAdminClient(backendURL).Login(password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Println("✓ Successfully logged in!")
		fmt.Printf("export TOKENCHAT_ADMIN_TOKEN=%s\n", token)
		return nil
	},
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show current security counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		adminClient, err := newAdminClient()
		if err != nil {
			return err
		}

		stats, err := adminClient.Stats()
		if err != nil {
			return fmt.Errorf("stats request failed: %w", err)
		}

		fmt.Printf("Blocked users:      %d\n", stats.BlockedUsers)
		fmt.Printf("Rate limit entries: %d\n", stats.RateLimitEntries)
		return nil
	},
}

var adminBlockCmd = &cobra.Command{
	Use:   "block <username>",
	Short: "Block a user from posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminClient, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := adminClient.BlockUser(args[0]); err != nil {
			return fmt.Errorf("block failed: %w", err)
		}
		fmt.Printf("✓ Blocked %s\n", args[0])
		return nil
	},
}

var adminUnblockCmd = &cobra.Command{
	Use:   "unblock <username>",
	Short: "Remove a user from the block list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminClient, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := adminClient.UnblockUser(args[0]); err != nil {
			return fmt.Errorf("unblock failed: %w", err)
		}
		fmt.Printf("✓ Unblocked %s\n", args[0])
		return nil
	},
}

var adminEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent persisted security events",
	RunE: func(cmd *cobra.Command, args []string) error {
		adminClient, err := newAdminClient()
		if err != nil {
			return err
		}

		events, err := adminClient.Events()
		if err != nil {
			return fmt.Errorf("events request failed: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No recorded events.")
			return nil
		}
		for _, event := range events {
			fmt.Printf("[%s] %s %s\n", event.CreatedAt.Format("2006-01-02 15:04:05"), event.Event, event.Details)
		}
		return nil
	},
}

var adminSweepCmd = &cobra.Command{
	Use:   "sweep <channel-key>",
	Short: "Force a retention sweep on one channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminClient, err := newAdminClient()
		if err != nil {
			return err
		}

		result, err := adminClient.Sweep(args[0])
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		fmt.Printf("✓ Removed %d expired messages, %d remaining\n", result.Removed, result.Remaining)
		return nil
	},
}

var adminHashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Generate an ADMIN_PASSWORD_HASH value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return fmt.Errorf("hashing failed: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminLoginCmd)
	adminCmd.AddCommand(adminStatsCmd)
	adminCmd.AddCommand(adminBlockCmd)
	adminCmd.AddCommand(adminUnblockCmd)
	adminCmd.AddCommand(adminEventsCmd)
	adminCmd.AddCommand(adminSweepCmd)
	adminCmd.AddCommand(adminHashPasswordCmd)
	rootCmd.AddCommand(adminCmd)

	adminLoginCmd.Flags().StringP("password", "p", "", "admin password (required)")
	adminCmd.PersistentFlags().StringVarP(&adminToken, "token", "t", adminToken, "admin JWT (or TOKENCHAT_ADMIN_TOKEN)")
}

func newAdminClient() (*client.AdminClient, error) {
	if adminToken == "" {
		return nil, fmt.Errorf("not logged in, run 'tokenchat admin login' first or provide --token")
	}
	adminClient := client.NewAdminClient(backendURL)
	adminClient.SetToken(adminToken)
	return adminClient, nil
}
