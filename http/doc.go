// Package http provides HTTP clients and handlers for agent request
// signatures.
//
// Client Components:
//   - Client: sends signed (or unsigned) requests and re-signs every
//     redirect hop for its new URL
//   - SigningTransport: RoundTripper that signs outgoing requests
//
// Server Components:
//   - Verifier: verifies incoming agent signatures
//   - JWKSResolver: resolves keys from the agent's Signature-Agent key set
//   - Wrap: runs a Verifier in front of an existing handler
//
// # Basic Client Usage
//
//	signer, err := botsig.NewSigner(creds)
//	client := http.NewClient(signer)
//	resp, err := client.Get(ctx, "https://blog.attach.dev/?p=6")
//	defer resp.Body.Close()
//
// # Basic Server Usage
//
//	verifier := http.NewVerifier(http.NewJWKSResolver(),
//		http.WithReplayStore(replay.NewMemory(time.Minute)))
//	handler := http.Wrap(myHandler, http.WithVerifier(verifier))
//	http.ListenAndServe(":8080", handler)
package http
