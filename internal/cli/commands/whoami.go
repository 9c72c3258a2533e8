package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vector-skill/academy/internal/session"
)

// whoamiOptions holds dependencies for runWhoami so tests can inject
// a prebuilt session and capture output
type whoamiOptions struct {
	sess   *session.Manager
	output io.Writer
}

// WhoamiOption configures runWhoami
type WhoamiOption func(*whoamiOptions)

// WithWhoamiSession injects a session manager
func WithWhoamiSession(sess *session.Manager) WhoamiOption {
	return func(o *whoamiOptions) {
		o.sess = sess
	}
}

// WithWhoamiOutput sets the output writer
func WithWhoamiOutput(w io.Writer) WhoamiOption {
	return func(o *whoamiOptions) {
		o.output = w
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(envName)
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name from vsa.json")

	return cmd
}

func runWhoami(envName string, opts ...WhoamiOption) error {
	options := &whoamiOptions{
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

	// Hydrate the stored token and confirm it against the backend; a
	// stale token self-corrects to anonymous here.
	options.sess.Initialize(context.Background())

	snap := options.sess.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil {
		fmt.Fprintln(options.output, "Not logged in. Run 'vsa login' first.")
		return nil
	}

	user := snap.User
	fmt.Fprintf(options.output, "User:   %s\n", describeUser(user))
	fmt.Fprintf(options.output, "Role:   %s\n", user.Role)
	if user.Phone != nil && *user.Phone != "" {
		fmt.Fprintf(options.output, "Phone:  %s\n", *user.Phone)
	}
	if !user.IsActive {
		fmt.Fprintln(options.output, "Status: inactive")
	}

	return nil
}
