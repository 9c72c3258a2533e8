package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vector-skill/academy/internal/apierr"
)

// NewLoginPhoneCmd creates the phone login command
func NewLoginPhoneCmd() *cobra.Command {
	var phone, envName string

	cmd := &cobra.Command{
		Use:   "login-phone",
		Short: "Authenticate with a phone number and one-time code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoginPhone(phone, envName)
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in international format, e.g. +91 98765 43210")
	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runLoginPhone(phone, envName string) error {
	env, err := resolveEnvironment(envName)
	if err != nil {
		return err
	}

	if env.FirebaseAPIKey == "" {
		return fmt.Errorf("environment '%s' has no firebase_api_key; phone login is not available", env.Name)
	}

	if phone == "" {
		phone, err = promptLine("Phone number")
		if err != nil {
			return err
		}
	}
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}

	sess, _ := newSession(env)

	fmt.Printf("Sending verification code to %s...\n", phone)

	err = sess.LoginWithOTP(context.Background(), phone, func() (string, error) {
		return promptLine("Verification code")
	})
	if err != nil {
		// A number the backend has never seen is a flow transition, not
		// a dead end: point the user at registration.
		if apierr.IsKind(err, apierr.KindPhoneNotRegistered) {
			fmt.Println("This phone number is not registered yet.")
			fmt.Println("Run 'vsa register' to create an account, then add this number to your profile.")
			return fmt.Errorf("phone not registered")
		}
		return fmt.Errorf("phone login failed: %w", err)
	}

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s\n", describeUser(sess.User()))

	return nil
}
