package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one inbox processing cycle",
		Long: `Fetch unread inbox messages and apply the first matching active rule to
each: labeling, marking read and archiving as the rule's actions dictate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			report, err := a.engine.ProcessInbox(ctx)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			fmt.Printf("Processed %d of %d unread messages (%d failed)\n",
				report.Processed, report.Total, report.Failed)
			return nil
		},
	}
	return cmd
}
