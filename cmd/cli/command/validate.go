package command

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tokenchat/internal/security"
)

// validate.go runs the client-side validation gate locally, so users can
// check a username or contract address without hitting the backend.

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate chat inputs locally",
	Long:  `Run the same validation the chat client applies before any network call.`,
}

var validateUsernameCmd = &cobra.Command{
	Use:   "username <name>",
	Short: "Check and canonicalize a username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sec := newLocalSecurityContext()
		defer sec.Close()

		username, err := sec.ValidateUsername(args[0])
		if err != nil {
			return describeValidationError(err)
		}
		fmt.Printf("✓ valid username: %s\n", username)
		return nil
	},
}

var validateCACmd = &cobra.Command{
	Use:   "ca <address>",
	Short: "Check a token contract address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sec := newLocalSecurityContext()
		defer sec.Close()

		address, err := sec.ValidateCAAddress(args[0])
		if err != nil {
			return describeValidationError(err)
		}
		fmt.Printf("✓ valid contract address: %s\n", address)
		return nil
	},
}

func init() {
	validateCmd.AddCommand(validateUsernameCmd)
	validateCmd.AddCommand(validateCACmd)
	rootCmd.AddCommand(validateCmd)
}

func newLocalSecurityContext() *security.Context {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return security.NewContext(logger)
}

func describeValidationError(err error) error {
	var verr *security.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("rejected (%s): %s", verr.Code, verr.Message)
	}
	return err
}
