package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password, envName string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password, envName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set VSA_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set VSA_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runLogin(email, password, envName string) error {
	// Environment variables are useful for CI
	if email == "" {
		email = os.Getenv("VSA_EMAIL")
	}
	if password == "" {
		password = os.Getenv("VSA_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or VSA_EMAIL env var)")
	}

	env, err := resolveEnvironment(envName)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = promptPassword("Password")
		if err != nil {
			return err
		}
	}

	sess, _ := newSession(env)

	fmt.Printf("Logging in to %s (%s)...\n", env.Name, env.BaseURL)

	if err := sess.Login(context.Background(), email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	user := sess.User()

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s\n", describeUser(user))
	if user.Role == "admin" {
		fmt.Println("  Role: Admin")
	}

	return nil
}
