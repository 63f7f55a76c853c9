package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/cmd"
	"github.com/mattsolo1/grove-quill/cmd/config"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

var svc *service.Service

func main() {
	rootCmd := &cobra.Command{
		Use:           "quill",
		Short:         "A project-based writing tool for documents and characters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		// This runs once before any subcommand
		config.InitConfig()

		var err error
		svc, err = config.InitService()
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if svc == nil {
			return nil
		}
		err := svc.Close()
		svc = nil
		return err
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewInitCmd(&svc))
	rootCmd.AddCommand(cmd.NewOpenCmd(&svc))
	rootCmd.AddCommand(cmd.NewProjectsCmd(&svc))
	rootCmd.AddCommand(cmd.NewTreeCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewNewCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewRmCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewShowCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewWriteCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewCharCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewSearchCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewSnapshotCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewSnapshotsCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewBackupCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewMigrateCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewTuiCmd(&svc, &config.ProjectOverride))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if svc != nil {
			_ = svc.Close()
		}
		os.Exit(1)
	}
}
