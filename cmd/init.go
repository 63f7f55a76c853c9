package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/persistence"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewInitCmd(svc **service.Service) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new project",
		Long: `Create a new project directory with its database, markdown mirror,
asset and backup folders, and make it the current project.

Examples:
  quill init novel              # Create ./novel
  quill init novel --dir ~/writing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			root, err := s.CreateProject(cmd.Context(), dir, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created project '%s' at %s\n", args[0], root)
			fmt.Fprintln(cmd.OutOrStdout(), "\nReady to use! Try 'quill new doc \"Chapter 1\"' to start writing.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Parent directory of the new project")

	return cmd
}

func NewOpenCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path|name>",
		Short: "Make a project the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Use(cmd.Context(), args[0]); err != nil {
				return err
			}

			st := s.Store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s (%d folders, %d documents, %d characters)\n",
				st.ProjectPath, len(st.Folders), len(st.Documents), len(st.Characters))
			return nil
		},
	}
}

func NewProjectsCmd(svc **service.Service) *cobra.Command {
	var (
		jsonOutput bool
		prune      bool
	)

	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"ls-projects"},
		Short:   "List recently opened projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if prune {
				removed, err := s.Registry.Prune(func(path string) bool {
					_, err := os.Stat(filepath.Join(path, persistence.DatabaseFile))
					return err == nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d missing projects\n", removed)
			}

			list, err := s.Registry.List()
			if err != nil {
				return err
			}

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects yet. Create one with 'quill init <name>'.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLAST USED\tPATH")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.LastUsed.Local().Format("2006-01-02 15:04"), p.Path)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&prune, "prune", false, "Forget projects whose directory no longer exists")

	return cmd
}
