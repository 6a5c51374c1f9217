package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"doorman/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.WriteSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set server.password (or export DOORMAN_SERVER_PASSWORD) before starting doormand.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:          %s:%d (virtual server %d)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.VirtualServer)
			fmt.Fprintf(out, "Username:        %s\n", cfg.Server.Username)
			fmt.Fprintf(out, "Password:        %s\n", maskSecret(cfg.Server.Password))
			fmt.Fprintf(out, "Nickname:        %s\n", cfg.Server.Nickname)
			fmt.Fprintf(out, "Home channel:    %s\n", cfg.Server.DefaultChannel)
			fmt.Fprintf(out, "Data directory:  %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Log directory:   %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Profile service: %s\n", profileSummary(cfg))
			fmt.Fprintf(out, "Groups:          guest=%s regular=%s sync=%s\n", cfg.Groups.Guest, cfg.Groups.Regular, yesNo(cfg.Groups.Sync))
			fmt.Fprintf(out, "Logging:         %s/%s\n", cfg.Logging.Format, cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Configuration at %s is valid.\n", path)
			} else {
				fmt.Fprintln(out, "No configuration file found; defaults and environment overrides are valid.")
			}
			return nil
		},
	}
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return strings.Repeat("*", 8)
}

func profileSummary(cfg *config.Config) string {
	if !cfg.Profile.Enabled {
		return "disabled"
	}
	return cfg.Profile.BaseURL
}
