package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-quill/internal/tui/browser"
	"github.com/mattsolo1/grove-quill/pkg/render"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

// NewTuiCmd creates the `quill tui` command.
func NewTuiCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the project interactively",
		Long: `Launch an interactive Terminal User Interface for the current project.
Browse the folder tree, preview documents and characters, edit documents
inline and create or delete entries. Edits are saved automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			ctx := cmd.Context()
			s.Autosave.Start(ctx)
			defer s.Autosave.Close()

			model := browser.New(ctx, s, render.NewMarkdown(viper.GetString("render.style")))
			defer model.Close()

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}
	return cmd
}
