package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/service"
)

// useProject opens the project selected by --project, or the most recently
// used one.
func useProject(cmd *cobra.Command, s *service.Service, projectOverride string) error {
	return s.Use(cmd.Context(), projectOverride)
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
