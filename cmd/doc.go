package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/render"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewShowCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var (
		rendered bool
		width    int
	)

	cmd := &cobra.Command{
		Use:   "show <doc>",
		Short: "Print a document",
		Long: `Print the markdown body of a document.

Examples:
  quill show "Chapter 1"
  quill show "Chapter 1" --render`,
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
			body, err := s.ReadDocument(cmd.Context(), id)
			if err != nil {
				return err
			}

			if rendered {
				body = render.NewMarkdown(viper.GetString("render.style")).Render(body, width)
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&rendered, "render", "r", false, "Render markdown for the terminal")
	cmd.Flags().IntVarP(&width, "width", "w", 80, "Wrap width when rendering")

	return cmd
}

func NewWriteCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "write <doc>",
		Short: "Replace a document body",
		Long: `Replace the body of a document with the contents of a file or stdin.

Examples:
  quill write "Chapter 1" --file chapter1.md
  cat draft.md | quill write "Chapter 1"`,
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

			var data []byte
			if file != "" && file != "-" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			if err := s.WriteDocument(cmd.Context(), id, string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes to %s\n", len(data), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the body from this file instead of stdin")

	return cmd
}
