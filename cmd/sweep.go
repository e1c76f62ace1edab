package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Trash labeled messages past their retention window",
		Long: `For every active rule with a retention period, trash messages under the
rule's label that are older than the configured number of days.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			report, err := a.engine.RetentionSweep(ctx)
			if err != nil {
				return fmt.Errorf("retention sweep failed: %w", err)
			}

			fmt.Printf("Swept %d rules: trashed %d messages, freed ~%d bytes (%d failures)\n",
				report.RulesSwept, report.Trashed, report.BytesFreed, report.Failures)
			return nil
		},
	}
	return cmd
}
