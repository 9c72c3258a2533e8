package envselect

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/vector-skill/academy/internal/cli/config"
	"github.com/vector-skill/academy/internal/cli/userconfig"
)

// ResolveEnvironment determines which backend to use based on the
// following priority:
//  1. If envName is provided (flag), use that environment
//  2. If the user has a selected environment in their local config, use that
//  3. If only one environment is configured, use it
//  4. Otherwise, prompt interactively
func ResolveEnvironment(projectConfig *config.Config, envName string) (*config.Environment, error) {
	if envName != "" {
		return projectConfig.GetEnvironment(envName)
	}

	selected, err := userconfig.GetSelectedEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selected != "" {
		env, err := projectConfig.GetEnvironment(selected)
		if err != nil {
			// Selected environment no longer exists; clear it and continue
			_ = userconfig.SetSelectedEnv("")
		} else {
			return env, nil
		}
	}

	if len(projectConfig.Environments) == 1 {
		env := &projectConfig.Environments[0]
		if err := userconfig.SetSelectedEnv(env.Name); err != nil {
			fmt.Printf("Warning: failed to save selected environment: %v\n", err)
		}
		return env, nil
	}

	env, err := PromptEnvironmentSelection(projectConfig)
	if err != nil {
		return nil, err
	}

	if err := userconfig.SetSelectedEnv(env.Name); err != nil {
		fmt.Printf("Warning: failed to save selected environment: %v\n", err)
	}

	return env, nil
}

// PromptEnvironmentSelection shows an interactive prompt to pick an environment
func PromptEnvironmentSelection(projectConfig *config.Config) (*config.Environment, error) {
	if len(projectConfig.Environments) == 0 {
		return nil, fmt.Errorf("no environments configured in %s", config.ConfigFileName)
	}

	labels := make([]string, len(projectConfig.Environments))
	for i, env := range projectConfig.Environments {
		labels[i] = fmt.Sprintf("%s (%s)", env.Name, env.BaseURL)
	}

	prompt := promptui.Select{
		Label: "Select environment",
		Items: labels,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("environment selection cancelled: %w", err)
	}

	return &projectConfig.Environments[index], nil
}
