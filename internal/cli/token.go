package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polgen/internal/service"
)

func newTokenCmd(g *globals) *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a service token for the HTTP API",
		Long: `Token signs an HS256 bearer token with the configured jwt.secret.

Examples:
  polgen token --subject acq-nightly
  polgen token --subject dashboard --scope batches:read --ttl 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := service.NewAuthService(g.cfg.JWT).IssueToken(service.TokenInput{
				Subject: subject,
				Scopes:  scopes,
				TTL:     ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "token subject (client name)")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "granted scopes (default batches:read,batches:write)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default jwt.token_expiry)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
