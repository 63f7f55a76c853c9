package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/render"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewSearchCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var (
		jsonOutput bool
		plain      bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across document bodies",
		Long: `Search the bodies of every document in the current project.

Examples:
  quill search lighthouse
  quill search "storm at sea" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			query := strings.Join(args, " ")
			hits, err := s.Engine.Search(cmd.Context(), s.ProjectPath(), query)
			if err != nil {
				return err
			}

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), hits)
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintf(out, "No documents match %q\n", query)
				return nil
			}

			for _, h := range hits {
				snippet := render.Snippet(h.Snippet)
				if plain {
					snippet = render.PlainSnippet(h.Snippet)
				}
				fmt.Fprintf(out, "%s %s\n", folderStyle.Render(h.Title), idStyle.Render(h.DocumentID))
				fmt.Fprintf(out, "  %s\n", snippet)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&plain, "plain", false, "Do not highlight matches")

	return cmd
}
