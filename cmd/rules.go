package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emailzen/emailzen/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the configured organization rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}

			list, err := rules.NewStore(store).List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No rules configured.")
				return nil
			}

			for _, r := range list {
				state := "active"
				if !r.Active {
					state = "inactive"
				}
				fmt.Printf("%s  %s (%s)\n", r.ID, r.Name, state)
				if len(r.Conditions.Senders) > 0 {
					fmt.Printf("    from: %s\n", strings.Join(r.Conditions.Senders, ", "))
				}
				if len(r.Conditions.Subjects) > 0 {
					fmt.Printf("    subject: %s\n", strings.Join(r.Conditions.Subjects, ", "))
				}
				fmt.Printf("    actions: %s\n", describeActions(r.Actions))
			}
			return nil
		},
	}
	return cmd
}

func describeActions(a rules.Actions) string {
	var parts []string
	if a.Label != "" {
		parts = append(parts, fmt.Sprintf("label %q", a.Label))
	}
	if a.MarkRead {
		parts = append(parts, "mark read")
	}
	if a.Archive {
		parts = append(parts, "archive")
	}
	if a.RetentionDays > 0 {
		parts = append(parts, fmt.Sprintf("trash after %d days", a.RetentionDays))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
