package main

import (
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"
)

func mfaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage the console's one-time code",
	}
	cmd.AddCommand(mfaSetupCmd(a))
	return cmd
}

func mfaSetupCmd(a *app) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate a CONSOLE_TOTP_SECRET and its authenticator URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := totp.Generate(totp.GenerateOpts{
				Issuer:      a.cfg.Security.MFAIssuer,
				AccountName: account,
				Period:      a.cfg.Security.MFAPeriod,
				Digits:      otp.DigitsSix,
				Algorithm:   otp.AlgorithmSHA1,
			})
			if err != nil {
				return fmt.Errorf("failed to generate secret: %w", err)
			}

			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"secret": key.Secret(), "url": key.URL()})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CONSOLE_TOTP_SECRET=%s\n", key.Secret())
			fmt.Fprintf(out, "Add to an authenticator app: %s\n", key.URL())
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "operators", "account name shown in the authenticator app")
	return cmd
}
