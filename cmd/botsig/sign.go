package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/openbotauth/botsig"
	"github.com/spf13/cobra"
)

func newSignCmd(a *app) *cobra.Command {
	var (
		method  string
		target  string
		headers []string
		created int64
		nonce   string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the signature base and headers for a request",
		Example: `  botsig sign --url https://example.com/article
  botsig sign --method POST --url https://example.com/api --header content-type=application/json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				target = a.cfg.Agent.DemoURL
			}
			extra, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			signer, err := a.cfg.Signer()
			if err != nil {
				return err
			}

			var options []botsig.SignOption
			for _, h := range extra {
				options = append(options, botsig.WithHeader(h[0], h[1]))
			}
			if created != 0 {
				options = append(options, botsig.WithCreated(time.Unix(created, 0)))
			}
			if nonce != "" {
				options = append(options, botsig.WithNonce(nonce))
			}

			signed, err := signer.Sign(method, target, options...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Signature base:")
			fmt.Fprintln(out, signed.Base.String())
			fmt.Fprintln(out)
			for _, name := range []string{
				botsig.SignatureInputHeader,
				botsig.SignatureHeader,
				botsig.SignatureAgentHeader,
				botsig.UserAgentHeader,
			} {
				if v, ok := signed.Headers.Map()[name]; ok {
					fmt.Fprintf(out, "%s: %s\n", name, v)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", http.MethodGet, "request method")
	cmd.Flags().StringVar(&target, "url", "", "request URL (default DEMO_URL)")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "header to cover as name=value, repeatable")
	cmd.Flags().Int64Var(&created, "created", 0, "created time as a Unix timestamp (default now)")
	cmd.Flags().StringVar(&nonce, "nonce", "", "nonce (default random)")
	return cmd
}
