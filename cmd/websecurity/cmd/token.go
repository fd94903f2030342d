package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/websecurity/auth"
	"github.com/upb/websecurity/identity"
)

var (
	secretFlag    string
	algorithmFlag string
	claimFlag     string
	ttlFlag       time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <login>",
	Short: "Issue a bearer token for the JWT identity policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := secretFlag
		if secret == "" {
			secret = os.Getenv("JWT_SECRET")
		}
		if secret == "" {
			return fmt.Errorf("--secret flag or JWT_SECRET is required")
		}

		issuer, err := auth.NewTokenIssuer(identity.JWTConfig{
			Secret:        secret,
			Algorithm:     algorithmFlag,
			IdentityClaim: claimFlag,
		}, ttlFlag)
		if err != nil {
			return err
		}

		token, err := issuer.Issue(args[0])
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&secretFlag, "secret", "", "HMAC secret (env: JWT_SECRET)")
	tokenCmd.Flags().StringVar(&algorithmFlag, "algorithm", identity.DefaultAlgorithm, "HS256, HS384 or HS512")
	tokenCmd.Flags().StringVar(&claimFlag, "claim", identity.DefaultIdentityClaim, "Claim carrying the login")
	tokenCmd.Flags().DurationVar(&ttlFlag, "ttl", time.Hour, "Token lifetime, 0 for no expiry")
}
