package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd() *cobra.Command {
	var email, envName string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForgotPassword(email, envName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set VSA_EMAIL)")
	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runForgotPassword(email, envName string) error {
	if email == "" {
		email = os.Getenv("VSA_EMAIL")
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or VSA_EMAIL env var)")
	}

	env, err := resolveEnvironment(envName)
	if err != nil {
		return err
	}

	_, api := newSession(env)

	message, err := api.ForgotPassword(context.Background(), email)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	fmt.Println(message)
	return nil
}
