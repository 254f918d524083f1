package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/auth"
	"github.com/F3Joule/subsocial-v2/internal/config"
	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/F3Joule/subsocial-v2/internal/validation"
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <account>",
		Short: "Issue a signed actor token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runToken(cmd.Context(), appConfig, social.AccountID(args[0]), time.Now, cmd.OutOrStdout())
		},
	}
}

func runToken(ctx context.Context, appConfig config.AppConfig, account social.AccountID, clock func() time.Time, out io.Writer) error {
	signingKey, err := appConfig.SigningKey()
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: signingKey,
		Issuer:        appConfig.TokenIssuer,
		TokenTTL:      time.Duration(appConfig.TokenTTLMinutes) * time.Minute,
		Clock:         clock,
		Validator:     validation.NewValidator(appConfig.Limits),
	})
	if err != nil {
		return err
	}
	token, expiresAt, err := issuer.IssueActorToken(ctx, account)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "# expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
