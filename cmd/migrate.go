package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewMigrateCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade a project database to the current schema",
		Long: `Apply pending schema migrations to a project database. Projects are also
migrated automatically when opened; use --dry-run to see what would change.

Examples:
  quill migrate --dry-run
  quill migrate -P ~/writing/novel`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			path, err := s.ResolveProject(*projectOverride)
			if err != nil {
				return err
			}

			report, err := s.Engine.MigrateProject(cmd.Context(), path, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", path)
			fmt.Fprintf(out, "Schema version: %d -> %d\n", report.FromVersion, report.ToVersion)
			if report.UpToDate() {
				fmt.Fprintln(out, "Already up to date.")
				return nil
			}

			if dryRun {
				fmt.Fprintln(out, "\nDRY RUN: would apply")
				for _, name := range report.Pending {
					fmt.Fprintf(out, "  - %s\n", name)
				}
				return nil
			}

			fmt.Fprintln(out, "\nApplied:")
			for _, name := range report.Applied {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			fmt.Fprintf(out, "Completed in %s\n", report.Duration())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show pending migrations without applying them")

	return cmd
}
