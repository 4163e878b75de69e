package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openbotauth/botsig"
	"github.com/openbotauth/botsig/decision"
	botsighttp "github.com/openbotauth/botsig/http"
	"github.com/openbotauth/botsig/internal/logger"
	"github.com/openbotauth/botsig/internal/widget"
	"github.com/spf13/cobra"
)

const previewLength = 200

func newFetchCmd(a *app) *cobra.Command {
	var (
		mode    string
		target  string
		headers []string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a page as a signed or unsigned agent",
		Long: `Fetch a page as a signed or unsigned agent and report how the origin
answered. Redirects are followed and signed requests are re-signed for
every hop.

Exit status is 0 for full access, 2 for a teaser or payment required
and 1 for anything else.`,
		Example: `  botsig fetch --mode unsigned
  botsig fetch --mode signed --url https://example.com/protected`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "signed" && mode != "unsigned" {
				return fmt.Errorf("--mode must be signed or unsigned, got %q", mode)
			}
			if target == "" {
				target = a.cfg.Agent.DemoURL
			}
			extra, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			var signer *botsig.Signer
			if mode == "signed" {
				if signer, err = a.cfg.Signer(); err != nil {
					return err
				}
			}
			client := botsighttp.NewClient(signer,
				botsighttp.WithTimeout(a.cfg.Client.Timeout),
				botsighttp.WithMaxRedirects(a.cfg.Client.MaxRedirects),
				botsighttp.WithLogger(a.log),
			)

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
			if err != nil {
				return fmt.Errorf("%w: %w", botsig.ErrInvalidURL, err)
			}
			for _, h := range extra {
				req.Header.Set(h[0], h[1])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target URL: %s\n", target)

			start := time.Now()
			resp, err := client.Do(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(io.LimitReader(resp.Body, widget.MaxBodyBytes))
			if err != nil {
				return fmt.Errorf("failed to read response body: %w", err)
			}

			result := decision.FromResponse(resp.Response, int64(len(body)))
			logger.From(cmd.Context()).Debug("fetched",
				logger.URL(resp.Final().URL),
				logger.Status(resp.StatusCode),
				logger.Duration(time.Since(start)),
				logger.Decision(result.Decision.String(), result.Basis.String()))

			printReport(out, mode, resp, body, result)
			if code := exitCode(resp.StatusCode, result.Decision, signer != nil); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "request mode: signed or unsigned")
	cmd.Flags().StringVar(&target, "url", "", "URL to fetch (default DEMO_URL)")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "extra request header as name=value, repeatable")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func printReport(out io.Writer, mode string, resp *botsighttp.Response, body []byte, result decision.Result) {
	for _, hop := range resp.Hops[:resp.Redirects()] {
		note := ""
		if hop.Signed != nil {
			note = " (re-signed)"
		}
		fmt.Fprintf(out, "Redirect: %d %s%s\n", hop.Status, hop.URL, note)
	}

	fmt.Fprintf(out, "\n%s REQUEST\n", strings.ToUpper(mode))
	fmt.Fprintf(out, "Status: %s\n", resp.Status)
	fmt.Fprintf(out, "Size: %d bytes\n", len(body))
	if v := resp.Header.Get(decision.Header); v != "" {
		fmt.Fprintf(out, "%s: %s\n", decision.Header, strings.ToUpper(v))
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "unknown"
	}
	fmt.Fprintf(out, "Content-Type: %s\n", contentType)
	if final := resp.Final(); final.Signed != nil {
		input := final.Signed.Headers.SignatureInput
		if len(input) > 80 {
			input = input[:77] + "..."
		}
		fmt.Fprintf(out, "Signature-Input: %s\n", input)
		if agent := final.Signed.Headers.SignatureAgent; agent != "" {
			fmt.Fprintf(out, "Signature-Agent: %s\n", agent)
		}
	}

	preview := widget.Snippet(body, previewLength+1)
	if len([]rune(preview)) > previewLength {
		preview = string([]rune(preview)[:previewLength]) + "..."
	}
	fmt.Fprintf(out, "\n%s\n\n", preview)
	fmt.Fprintf(out, "Decision: %s\n", result)
}

// exitCode maps a fetch outcome to the process exit status: 0 for full
// access, 2 for a teaser or payment required, 1 otherwise. Without a
// decision header or heuristic, a successful signed fetch counts as full
// access and a successful unsigned one as a teaser.
func exitCode(status int, d decision.Decision, signed bool) int {
	switch d {
	case decision.Allow:
		return 0
	case decision.Teaser, decision.PaymentRequired:
		return 2
	case decision.Deny:
		return 1
	}
	if status >= 200 && status < 300 {
		if signed {
			return 0
		}
		return 2
	}
	return 1
}
