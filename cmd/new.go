package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewNewCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "new <folder|doc|char> <name>",
		Short: "Create a folder, document or character",
		Long: `Create a folder, document or character in the current project.

Examples:
  quill new folder "Part One"
  quill new doc "Chapter 1" --in "Part One"
  quill new char "Ada Lovelace"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			kind, ok := models.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q (expected folder, doc or char)", args[0])
			}
			name := strings.TrimSpace(strings.Join(args[1:], " "))

			parentID, err := s.FindEntity(models.KindFolder, parent)
			if err != nil {
				return err
			}

			m := s.Mutations.WithPrompter(mutation.StaticName(name))
			var id string
			switch kind {
			case models.KindFolder:
				id, err = m.CreateFolder(cmd.Context(), parentID)
			case models.KindDocument:
				id, err = m.CreateDocument(cmd.Context(), parentID)
			case models.KindCharacter:
				id, err = m.CreateCharacter(cmd.Context(), parentID)
			}
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("%s name is empty", kind)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s '%s' (%s)\n", kind, name, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "in", "", "Parent folder name or id (default: project root)")

	return cmd
}
