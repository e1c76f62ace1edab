package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var logout bool

	cmd := &cobra.Command{
		Use:   "auth [authorization-code]",
		Short: "Authorize access to your Gmail account",
		Long: `Authorize emailzen to read and modify your Gmail mailbox.

Run without arguments to print the Google consent URL. Open it in a
browser, approve access, and run the command again with the code Google
displays. The resulting tokens are stored in the data directory and
refreshed automatically.

OAuth client credentials must be provided via the GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET environment variables.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			auth, err := newAuthenticator(store)
			if err != nil {
				return err
			}

			if logout {
				if err := auth.Logout(); err != nil {
					return fmt.Errorf("failed to remove stored tokens: %w", err)
				}
				fmt.Println("Stored tokens removed.")
				return nil
			}

			if len(args) == 0 {
				fmt.Println("Open the following URL in a browser, approve access, then run:")
				fmt.Println("  emailzen auth <authorization-code>")
				fmt.Println()
				fmt.Println(auth.AuthURL())
				return nil
			}

			if err := auth.Exchange(context.Background(), args[0]); err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			fmt.Println("Authorization successful. Tokens stored.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&logout, "logout", false, "Remove the stored tokens instead of authorizing")
	return cmd
}
