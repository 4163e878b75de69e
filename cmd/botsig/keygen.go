package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/openbotauth/botsig/keys"
	"github.com/spf13/cobra"
)

const rule = "=========="

func newKeygenCmd() *cobra.Command {
	var (
		kid      string
		agentURL string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 agent key in key file format",
		Long: `Generate an Ed25519 agent key and print it in the key file format read
by parse-keys, followed by the JWKS to publish at the Signature-Agent URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kid == "" {
				kid = uuid.NewString()
			}
			priv, err := keys.Generate()
			if err != nil {
				return err
			}
			return writeKeyFile(cmd.OutOrStdout(), priv, kid, agentURL)
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key ID (default a random UUID)")
	cmd.Flags().StringVar(&agentURL, "agent-url", "", "JWKS URL the key will be published at")
	return cmd
}

func writeKeyFile(w io.Writer, priv *keys.PrivateKey, kid, agentURL string) error {
	privPEM, err := priv.MarshalPEM()
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}
	pub := priv.Public()
	pubPEM, err := pub.MarshalPEM()
	if err != nil {
		return fmt.Errorf("failed to encode public key: %w", err)
	}
	key, err := pub.JWK(kid)
	if err != nil {
		return err
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return fmt.Errorf("failed to build jwks: %w", err)
	}
	jwks, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode jwks: %w", err)
	}

	if agentURL != "" {
		fmt.Fprintf(w, "JWKS URL: %s\n", agentURL)
	}
	section(w, "KEY ID (KID)", kid)
	section(w, "PRIVATE KEY (Keep this secret!)", strings.TrimSpace(string(privPEM)))
	section(w, "PUBLIC KEY (PEM Format)", strings.TrimSpace(string(pubPEM)))
	section(w, "JWKS (publish at the Signature-Agent URL)", string(jwks))
	return nil
}

func section(w io.Writer, heading, body string) {
	fmt.Fprintf(w, "%s\n%s\n%s\n%s\n\n", rule, heading, rule, body)
}
