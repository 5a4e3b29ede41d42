package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect devteam configuration",
	}
	cmd.AddCommand(newConfigCheckCmd())
	cmd.AddCommand(newConfigPrintCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config OK: %s\n", configPath)
			fmt.Fprintf(out, "  port:          %d\n", cfg.Server.Port)
			fmt.Fprintf(out, "  delete policy: %s\n", cfg.Clients.DeletePolicy)
			if cfg.Notify.Platform != "" {
				fmt.Fprintf(out, "  notify:        %s\n", cfg.Notify.Platform)
			} else {
				fmt.Fprintf(out, "  notify:        disabled\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "devteam.yaml", "path to devteam config file")
	return cmd
}

func newConfigPrintCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		Long:  "Prints the configuration with defaults applied. Without --config, prints the defaults.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to devteam config file")
	return cmd
}
