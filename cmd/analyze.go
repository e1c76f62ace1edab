package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emailzen/emailzen/internal/analyzer"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/retry"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		minTotal   int
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Suggest rules for frequent unread senders",
		Long: `Scan the unread inbox, group messages by sender domain, and suggest a
rule for each frequent sender that no existing rule covers. The scan is
deliberately paced to stay within Gmail API quota and can take a few
minutes on a large inbox.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			opts := analyzer.Options{
				MinTotal:   minTotal,
				MaxResults: maxResults,
				Progress: func(processed, total int, stage string) bool {
					fmt.Printf("\r%s: %d/%d", stage, processed, total)
					return true
				},
			}

			// Rate limit bursts can outlast the per-call backoff; retry
			// the whole run a few times before giving up.
			policy := retry.Policy{
				MaxAttempts: 3,
				BaseDelay:   2 * time.Second,
				MaxDelay:    10 * time.Second,
				Retryable:   gmail.IsRetryable,
			}

			var suggestions []analyzer.Suggestion
			err = policy.Do(ctx, func() error {
				var runErr error
				suggestions, runErr = a.analyzer.Run(ctx, opts)
				return runErr
			})
			fmt.Println()
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if len(suggestions) == 0 {
				fmt.Println("No frequent senders found that existing rules do not already cover.")
				return nil
			}
			for _, s := range suggestions {
				fmt.Printf("%-30s %4d messages (%.1f%% of unread sample)  suggested label: %s\n",
					s.Domain, s.Count, s.Percent, s.SuggestedLabel)
				if s.HasSubdomains {
					for _, sub := range s.Subdomains {
						fmt.Printf("    includes %s\n", sub)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minTotal, "min-total", analyzer.DefaultMinTotal, "Minimum total message count for a sender to qualify")
	cmd.Flags().IntVar(&maxResults, "max-results", analyzer.DefaultMaxResults, "Maximum number of suggestions")
	return cmd
}
