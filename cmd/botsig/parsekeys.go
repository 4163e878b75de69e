package main

import (
	"context"
	"fmt"
	"os"

	botsighttp "github.com/openbotauth/botsig/http"
	"github.com/openbotauth/botsig/internal/logger"
	"github.com/openbotauth/botsig/keyfile"
	"github.com/openbotauth/botsig/keys"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newParseKeysCmd(a *app) *cobra.Command {
	var (
		envPath string
		noJWKS  bool
		demoURL string
	)
	cmd := &cobra.Command{
		Use:   "parse-keys <key-file>",
		Short: "Turn a registry key file into a .env file",
		Long: `Read the key file downloaded from the registry, check the key pair and
write the agent settings to a .env file.

Unless --no-jwks is given, the published JWKS is fetched and the key ID
it lists for the public key is used when it differs from the file's.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reading key file: %s\n", args[0])

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			file, err := keyfile.Parse(f)
			if err != nil {
				return err
			}
			if err := file.Validate(); err != nil {
				return err
			}
			_, pub, err := file.Keys()
			if err != nil {
				return err
			}

			kid := file.KeyID
			if !noJWKS {
				kid = registeredKeyID(cmd, a, file, pub)
			}

			if demoURL == "" {
				demoURL = a.cfg.Agent.DemoURL
			}
			if err := keyfile.WriteEnv(envPath, file.Env(kid, demoURL)); err != nil {
				return err
			}

			fmt.Fprintf(out, "Generated %s\n", envPath)
			fmt.Fprintf(out, "  KID: %s\n", kid)
			fmt.Fprintf(out, "  JWKS URL: %s\n", file.JWKSURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&envPath, "env", ".env", "output .env file")
	cmd.Flags().BoolVar(&noJWKS, "no-jwks", false, "do not look the key up in the published JWKS")
	cmd.Flags().StringVar(&demoURL, "demo-url", "", "DEMO_URL to write (default from configuration)")
	return cmd
}

// registeredKeyID returns the kid the published JWKS lists for pub, or
// the file's kid when the JWKS cannot be fetched or does not list the key.
func registeredKeyID(cmd *cobra.Command, a *app, file *keyfile.File, pub *keys.PublicKey) string {
	out := cmd.OutOrStdout()
	log := logger.From(cmd.Context())

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Client.Timeout)
	defer cancel()
	set, err := botsighttp.NewJWKSResolver().Fetch(ctx, file.JWKSURL)
	if err != nil {
		log.Warn("could not fetch jwks", logger.URL(file.JWKSURL), zap.Error(err))
		fmt.Fprintf(out, "Warning: could not check the key in the JWKS: %v\n", err)
		return file.KeyID
	}
	kid, ok := keys.MatchKeyID(set, pub)
	if !ok {
		fmt.Fprintln(out, "Warning: no matching public key found in the JWKS; the key may not be registered yet")
		return file.KeyID
	}
	if kid != file.KeyID {
		fmt.Fprintln(out, "KID mismatch detected")
		fmt.Fprintf(out, "  Key file has: %s\n", file.KeyID)
		fmt.Fprintf(out, "  JWKS has:     %s\n", kid)
	}
	return kid
}
