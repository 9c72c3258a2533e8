package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vector-skill/academy/internal/session"
)

type logoutOptions struct {
	sess   *session.Manager
	output io.Writer
}

// LogoutOption configures runLogout
type LogoutOption func(*logoutOptions)

// WithLogoutSession injects a session manager
func WithLogoutSession(sess *session.Manager) LogoutOption {
	return func(o *logoutOptions) {
		o.sess = sess
	}
}

// WithLogoutOutput sets the output writer
func WithLogoutOutput(w io.Writer) LogoutOption {
	return func(o *logoutOptions) {
		o.output = w
	}
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(envName)
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runLogout(envName string, opts ...LogoutOption) error {
	options := &logoutOptions{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.sess == nil {
		env, err := resolveEnvironment(envName)
		if err != nil {
			return err
		}
		options.sess, _ = newSession(env)
	}

	options.sess.Logout()

	fmt.Fprintln(options.output, "✓ Logged out.")
	return nil
}
