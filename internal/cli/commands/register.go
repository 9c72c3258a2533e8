package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vector-skill/academy/internal/session"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var email, password, fullName, phone, envName string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(email, password, fullName, phone, envName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set VSA_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 6 characters (will prompt if not provided)")
	cmd.Flags().StringVar(&fullName, "name", "", "Full name (optional)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number for OTP login (optional)")
	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runRegister(email, password, fullName, phone, envName string) error {
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

	// Password confirmation is this command's responsibility; the
	// backend only enforces length.
	if password == "" {
		password, err = promptPassword("Password")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	sess, _ := newSession(env)

	fmt.Printf("Creating account on %s (%s)...\n", env.Name, env.BaseURL)

	err = sess.Register(context.Background(), session.RegisterParams{
		Email:    email,
		Password: password,
		FullName: fullName,
		Phone:    phone,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Println("✓ Account created!")
	fmt.Printf("  User: %s\n", describeUser(sess.User()))

	return nil
}
