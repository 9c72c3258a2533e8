package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd() *cobra.Command {
	var token, envName string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using an emailed reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPassword(token, envName)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the email")
	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runResetPassword(token, envName string) error {
	if token == "" {
		return fmt.Errorf("token is required (use --token flag)")
	}

	env, err := resolveEnvironment(envName)
	if err != nil {
		return err
	}

	password, err := promptPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm new password")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	_, api := newSession(env)

	message, err := api.ResetPassword(context.Background(), token, password)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Println(message)
	return nil
}
