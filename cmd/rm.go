package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewRmCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <folder|doc|char> <name|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a folder, document or character",
		Long: `Delete an entity from the current project.

Documents and characters are removed immediately. Deleting a folder removes
everything inside it, so it requires --yes; without it the contents that
would be removed are listed instead.

Examples:
  quill rm doc "Old draft"
  quill rm folder "Part One"          # Show what would be removed
  quill rm folder "Part One" --yes`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			kind, ok := models.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q (expected folder, doc or char)", args[0])
			}
			if kind == models.KindFolder && args[1] == "" {
				return fmt.Errorf("folder name is required")
			}
			id, err := s.FindEntity(kind, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch kind {
			case models.KindDocument:
				if err := s.Mutations.DeleteDocument(cmd.Context(), id); err != nil {
					return err
				}
			case models.KindCharacter:
				if err := s.Mutations.DeleteCharacter(cmd.Context(), id); err != nil {
					return err
				}
			case models.KindFolder:
				pending, err := s.Mutations.RequestDeleteFolder(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Folder '%s' contains %d folders, %d documents and %d characters.\n",
					pending.Name, pending.Counts.Folders, pending.Counts.Documents, pending.Counts.Characters)
				if !yes {
					s.Mutations.CancelDelete(pending)
					fmt.Fprintln(out, "Nothing deleted. Re-run with --yes to delete it and everything inside.")
					return nil
				}
				if err := s.Mutations.ConfirmDelete(cmd.Context(), pending); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "Deleted %s %s\n", kind, args[1])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deleting a folder and its contents")

	return cmd
}
