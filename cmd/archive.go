package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewSnapshotCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "snapshot <doc>",
		Short: "Save a point-in-time copy of a document",
		Long: `Save a copy of a document's current body. Snapshots are kept until the
document is deleted.

Examples:
  quill snapshot "Chapter 1" -m "before rewrite"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			id, err := s.FindEntity(models.KindDocument, args[0])
			if err != nil {
				return err
			}
			if err := s.Engine.SnapshotDocument(cmd.Context(), s.ProjectPath(), id, note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot saved for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "message", "m", "", "Note stored with the snapshot")

	return cmd
}

func NewSnapshotsCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "snapshots <doc>",
		Short: "List snapshots of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			id, err := s.FindEntity(models.KindDocument, args[0])
			if err != nil {
				return err
			}
			snaps, err := s.Engine.ListSnapshots(cmd.Context(), s.ProjectPath(), id)
			if err != nil {
				return err
			}

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), snaps)
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tID\tNOTE")
			for _, snap := range snaps {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					snap.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					snap.ID,
					truncateString(snap.Note, 50))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func NewBackupCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a zip backup of the project",
		Long: `Write a consistent zip archive of the project database, markdown mirror
and assets into the project's backups/ directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			path, err := s.Engine.BackupProject(cmd.Context(), s.ProjectPath())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}
}
