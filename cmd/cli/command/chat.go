package command

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tokenchat/internal/backend"
	"tokenchat/internal/chat"
	"tokenchat/internal/security"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat room related commands",
	Long:  `Commands to join token chat rooms and talk in real-time.`,
}

var chatJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a token chat room",
	RunE: func(cmd *cobra.Command, args []string) error {
		site, _ := cmd.Flags().GetString("site")
		address, _ := cmd.Flags().GetString("ca")
		username, _ := cmd.Flags().GetString("username")

		return runChatRoom(site, address, username)
	},
}

func init() {
	chatCmd.AddCommand(chatJoinCmd)
	rootCmd.AddCommand(chatCmd)

	chatJoinCmd.Flags().StringP("site", "s", "", "site the token lives on, e.g. pump.fun (required)")
	chatJoinCmd.Flags().StringP("ca", "c", "", "token contract address (required)")
	chatJoinCmd.Flags().StringP("username", "u", "", "username to chat as (required)")
	chatJoinCmd.MarkFlagRequired("site")
	chatJoinCmd.MarkFlagRequired("ca")
	chatJoinCmd.MarkFlagRequired("username")
}

// terminalEvents renders core signals as plain lines on stdout. Rendering
// must stay cheap: callbacks run on the poll goroutine.
type terminalEvents struct{}

func (e *terminalEvents) PresenceChanged(count int, usernames []string) {
	fmt.Printf("-- %d online: %s\n", count, strings.Join(usernames, ", "))
}

func (e *terminalEvents) MessagesChanged(messages []backend.Message) {
	fmt.Println("----------------------------------------")
	for _, msg := range messages {
		ts := time.UnixMilli(msg.CreatedAt).Format("15:04:05")
		fmt.Printf("[%s] %s: %s", ts, msg.Author, msg.Text)
		if len(msg.ReactionOrder) > 0 {
			var parts []string
			for _, emoji := range msg.ReactionOrder {
				parts = append(parts, fmt.Sprintf("%s %d", emoji, msg.Reactions[emoji]))
			}
			fmt.Printf("  (%s)", strings.Join(parts, " "))
		}
		fmt.Printf("  #%s\n", msg.ID)
	}
}

func (e *terminalEvents) Warning(err error) {
	fmt.Fprintf(os.Stderr, "! %v\n", err)
}

func runChatRoom(site, address, username string) error {
	// The CLI only wants to see real problems from the core.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	sec := security.NewContext(logger)
	defer sec.Close()

	core := chat.NewCore(backend.NewClient(backendURL), sec, logger)

	ctx := context.Background()
	surface, err := core.OpenSurface(ctx, site, address, username, &terminalEvents{})
	if err != nil {
		return fmt.Errorf("could not join chat: %w", err)
	}
	defer surface.Close()

	fmt.Printf("Joined %s as %s. Messages disappear after 5 minutes.\n", surface.ChannelKey(), surface.Username())
	fmt.Println("Type a message and press enter. /react <id> <emoji> toggles a reaction, /quit leaves.")

	// Ctrl-C leaves the room cleanly instead of orphaning the presence entry.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-sigs:
			fmt.Println("\nLeaving chat.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleChatLine(ctx, surface, line); err != nil {
				if err == errQuit {
					fmt.Println("Leaving chat.")
					return nil
				}
				fmt.Fprintf(os.Stderr, "! %v\n", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleChatLine(ctx context.Context, surface *chat.Surface, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if strings.HasPrefix(line, "/") {
		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit", "/exit":
			return errQuit
		case "/react":
			if len(fields) != 3 {
				return fmt.Errorf("usage: /react <message-id> <emoji>")
			}
			if err := surface.ToggleReaction(ctx, fields[1], fields[2]); err != nil {
				return err
			}
			if view, err := surface.ReactionSnapshot(ctx, fields[1]); err == nil {
				for _, emoji := range view.Order {
					fmt.Printf("  %s %d", emoji, view.Counts[emoji])
				}
				fmt.Println()
			}
			return nil
		default:
			return fmt.Errorf("unknown command %q", fields[0])
		}
	}

	return surface.SendMessage(ctx, line)
}
