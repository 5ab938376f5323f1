package cmd

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/xfinder/xfinder/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage xfinder's config.toml",
		Example: `  # Show the effective configuration
  xfinder config show

  # Write the current defaults to <index-dir>/config.toml
  xfinder config init

  # Back up the current config.toml
  xfinder config backup

  # List config.toml backups, newest first
  xfinder config backups

  # Restore config.toml from a backup
  xfinder config restore <path>`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigBackupCmd())
	cmd.AddCommand(newConfigBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(indexDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to <index-dir>/config.toml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if config.ConfigExists(indexDir) {
				return fmt.Errorf("config.toml already exists under %s; remove it first or edit it directly", indexDir)
			}
			if err := config.SaveTOML(indexDir, config.NewConfig()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s/config.toml\n", indexDir)
			return nil
		},
	}
}

func newConfigBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the current config.toml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.BackupConfig(indexDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List config.toml backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := config.ListConfigBackups(indexDir)
			if err != nil {
				return err
			}
			for _, b := range backups {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-path>",
		Short: "Restore config.toml from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.RestoreConfig(indexDir, args[0])
		},
	}
}
