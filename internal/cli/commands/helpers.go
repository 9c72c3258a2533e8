package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	cliauth "github.com/vector-skill/academy/internal/cli/auth"
	"github.com/vector-skill/academy/internal/cli/client"
	"github.com/vector-skill/academy/internal/cli/config"
	"github.com/vector-skill/academy/internal/cli/envselect"
	"github.com/vector-skill/academy/internal/logger"
	"github.com/vector-skill/academy/internal/session"
)

// resolveEnvironment loads the project config and picks the target
// environment for a command.
func resolveEnvironment(envName string) (*config.Environment, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'vsa init' to create a configuration file", err)
	}

	env, err := envselect.ResolveEnvironment(cfg, envName)
	if err != nil {
		return nil, err
	}

	if env.BaseURL == "" {
		return nil, fmt.Errorf("environment '%s' has no base_url. Please edit %s", env.Name, config.ConfigFileName)
	}

	return env, nil
}

// newSession builds a session manager wired to the environment's API
// and the OS keyring.
func newSession(env *config.Environment) (*session.Manager, *client.Client) {
	api := client.New(env.BaseURL)
	store := &cliauth.KeyringStore{Env: env.Name}

	opts := []session.Option{}
	if env.FirebaseAPIKey != "" {
		opts = append(opts, session.WithCodeSender(session.NewFirebaseSender(env.FirebaseAPIKey)))
	}

	return session.New(api, store, logger.GetLogger(), opts...), api
}

// promptPassword reads a password without echo when stdin is a
// terminal; piped input is rejected so scripts pass credentials by
// flag or environment variable instead.
func promptPassword(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%s is required in non-interactive mode", strings.ToLower(label))
	}

	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(raw), nil
}

// promptLine reads one line of input with the given label.
func promptLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func describeUser(user *session.User) string {
	name := "(no name)"
	if user.FullName != nil && *user.FullName != "" {
		name = *user.FullName
	}
	return fmt.Sprintf("%s <%s>", name, user.Email)
}
