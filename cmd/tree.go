package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/service"
	"github.com/mattsolo1/grove-quill/pkg/tree"
)

var (
	folderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	charStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	idStyle     = lipgloss.NewStyle().Faint(true)
)

func NewTreeCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var (
		jsonOutput bool
		showIDs    bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the project tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			st := s.Store.Snapshot()
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), st.Listing())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, folderStyle.Render(st.ProjectPath))
			for _, row := range tree.Flatten(st.Tree, tree.ExpandAll) {
				fmt.Fprintf(out, "%s%s", row.Prefix, formatNode(row.Node))
				if showIDs {
					fmt.Fprintf(out, " %s", idStyle.Render(row.Node.ID()))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showIDs, "ids", false, "Show entity ids")

	return cmd
}

func formatNode(n *tree.Node) string {
	switch n.Kind {
	case models.KindFolder:
		return folderStyle.Render(n.Name() + "/")
	case models.KindCharacter:
		return charStyle.Render("@" + n.Name())
	default:
		return n.Name()
	}
}
