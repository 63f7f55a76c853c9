package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func NewCharCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "char",
		Aliases: []string{"character"},
		Short:   "View and edit character profiles",
	}

	cmd.AddCommand(newCharShowCmd(svc, projectOverride))
	cmd.AddCommand(newCharSetCmd(svc, projectOverride))
	cmd.AddCommand(newCharAttrCmd(svc, projectOverride))
	cmd.AddCommand(newCharImageCmd(svc, projectOverride))

	return cmd
}

func newCharShowCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <char>",
		Short: "Print a character profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			id, err := s.FindEntity(models.KindCharacter, args[0])
			if err != nil {
				return err
			}
			profile, err := s.ReadCharacter(cmd.Context(), id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), profile)
			}

			c, _ := s.Store.Snapshot().Character(id)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, folderStyle.Render(c.Name))

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Age:\t%s\n", profile.Age)
			fmt.Fprintf(w, "Nationality:\t%s\n", profile.Nationality)
			fmt.Fprintf(w, "Sexuality:\t%s\n", profile.Sexuality)
			fmt.Fprintf(w, "Height:\t%s\n", profile.Height)
			if profile.ImagePath != "" {
				fmt.Fprintf(w, "Image:\t%s\n", profile.ImagePath)
			}
			for _, a := range profile.Attributes {
				fmt.Fprintf(w, "%s:\t%s\n", a.Key, a.Value)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// setProfileField updates one of the fixed profile fields.
func setProfileField(p *models.Profile, field, value string) error {
	switch strings.ToLower(field) {
	case "age":
		p.Age = value
	case "nationality":
		p.Nationality = value
	case "sexuality":
		p.Sexuality = value
	case "height":
		p.Height = value
	default:
		return fmt.Errorf("unknown field %q (expected age, nationality, sexuality or height)", field)
	}
	return nil
}

func newCharSetCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <char> <field=value>...",
		Short: "Set profile fields",
		Long: `Set the fixed profile fields of a character.

Examples:
  quill char set Ada age=36 nationality=British`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			id, err := s.FindEntity(models.KindCharacter, args[0])
			if err != nil {
				return err
			}

			type assignment struct{ field, value string }
			var assignments []assignment
			for _, arg := range args[1:] {
				field, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("invalid assignment %q (expected field=value)", arg)
				}
				if err := setProfileField(&models.Profile{}, field, value); err != nil {
					return err
				}
				assignments = append(assignments, assignment{field, value})
			}

			err = s.UpdateCharacter(cmd.Context(), id, func(p *models.Profile) {
				for _, a := range assignments {
					_ = setProfileField(p, a.field, a.value)
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}
}

func newCharAttrCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "attr <char> <key> [value]",
		Short: "Add, change or remove a custom attribute",
		Long: `Add, change or remove a free-form attribute on a character.
Attributes keep their order; setting an existing key replaces its value.

Examples:
  quill char attr Ada occupation "mathematician"
  quill char attr Ada occupation --remove`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			id, err := s.FindEntity(models.KindCharacter, args[0])
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[1])
			if key == "" {
				return fmt.Errorf("attribute key is empty")
			}
			if !remove && len(args) != 3 {
				return fmt.Errorf("a value is required unless --remove is given")
			}

			err = s.UpdateCharacter(cmd.Context(), id, func(p *models.Profile) {
				if remove {
					p.Attributes = removeAttribute(p.Attributes, key)
					return
				}
				p.Attributes = setAttribute(p.Attributes, key, args[2])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the attribute")

	return cmd
}

func setAttribute(attrs []models.Attribute, key, value string) []models.Attribute {
	for i := range attrs {
		if attrs[i].Key == key {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, models.Attribute{Key: key, Value: value})
}

func removeAttribute(attrs []models.Attribute, key string) []models.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if a.Key != key {
			out = append(out, a)
		}
	}
	return out
}

func newCharImageCmd(svc **service.Service, projectOverride *string) *cobra.Command {
	return &cobra.Command{
		Use:   "image <char> <file>",
		Short: "Import a portrait image for a character",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := useProject(cmd, s, *projectOverride); err != nil {
				return err
			}

			id, err := s.FindEntity(models.KindCharacter, args[0])
			if err != nil {
				return err
			}
			dest, err := s.ImportCharacterImage(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported image to %s\n", dest)
			return nil
		},
	}
}
