package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vector-skill/academy/internal/cli/config"
	"github.com/vector-skill/academy/internal/cli/envselect"
	"github.com/vector-skill/academy/internal/cli/userconfig"
)

// NewUseEnvCmd creates the use-env command
func NewUseEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-env [name]",
		Short: "Select the default backend environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runUseEnv(name)
		},
	}
}

func runUseEnv(name string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var env *config.Environment
	if name != "" {
		env, err = cfg.GetEnvironment(name)
		if err != nil {
			return err
		}
	} else {
		env, err = envselect.PromptEnvironmentSelection(cfg)
		if err != nil {
			return err
		}
	}

	if err := userconfig.SetSelectedEnv(env.Name); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	fmt.Printf("✓ Using environment %s (%s)\n", env.Name, env.BaseURL)
	return nil
}
