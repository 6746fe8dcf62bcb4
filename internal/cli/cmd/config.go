package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/berrythewa/clipstack/internal/config"
)

// SkipConfig marks commands that must run before or without a valid config
// file.
const SkipConfig = "skip-config"

// activeConfigPath is --config, or the platform default.
func activeConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage clipstack configuration",
		Long: `Manage clipstack configuration:
  • Initialize configuration for first-time setup
  • Show the effective configuration, environment overrides included
  • Print the path of the configuration file
  • Edit configuration in your preferred editor
  • Validate configuration`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigEditCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default configuration file",
		Annotations: map[string]string{SkipConfig: ""},
		Long: `Write a configuration file with defaults for this platform. Retention and
encryption start disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("configuration already exists at %s\nUse --force to overwrite or 'clipstack config show' to view current config", configPath)
			}

			defaults := config.DefaultConfig()
			GetZapLogger().Info("Initializing configuration", zap.String("config_path", configPath))
			if err := defaults.Save(configPath); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration initialized at: %s\n", configPath)
			fmt.Fprintf(out, "✓ Database path: %s\n", defaults.Storage.DBPath)
			fmt.Fprintln(out, "\nTo start the daemon, run: clipstack daemon start")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force overwrite existing configuration")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if useJSON {
				outFormat = "json"
			}
			switch outFormat {
			case "json":
				return writeJSON(cmd.OutOrStdout(), cfg)
			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			default:
				return fmt.Errorf("unsupported format: %s", outFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outFormat, "format", "f", "yaml", "output format (yaml or json)")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file path",
		Annotations: map[string]string{SkipConfig: ""},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
			return nil
		},
	}
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "edit",
		Short:       "Edit configuration in your preferred editor",
		Annotations: map[string]string{SkipConfig: ""},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}

			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.DefaultConfig().Save(configPath); err != nil {
					return fmt.Errorf("failed to create default config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Created new configuration file with defaults")
			}

			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vi"
			}
			editorCmd := exec.Command(editor, configPath)
			editorCmd.Stdin = os.Stdin
			editorCmd.Stdout = os.Stdout
			editorCmd.Stderr = os.Stderr
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}

			if _, err := config.Load(configPath); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\nThe file has been saved, but may contain errors.\n", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration updated and validated successfully")
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{SkipConfig: ""},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
			if _, err := config.Load(configPath); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}
}
