package keyfile

import (
	"fmt"

	"github.com/joho/godotenv"
)

// Environment variable names read by the agent configuration.
const (
	EnvPrivateKeyPEM     = "OBA_PRIVATE_KEY_PEM"
	EnvPublicKeyPEM      = "OBA_PUBLIC_KEY_PEM"
	EnvKeyID             = "OBA_KID"
	EnvSignatureAgentURL = "OBA_SIGNATURE_AGENT_URL"
	EnvDemoURL           = "DEMO_URL"
)

// DefaultDemoURL is the page fetched by the demo agent.
const DefaultDemoURL = "https://blog.attach.dev/?p=6"

// Env returns the environment for the key file. kid overrides the file's
// key ID when the registry knows the key under another ID; demoURL
// defaults to DefaultDemoURL.
func (f *File) Env(kid, demoURL string) map[string]string {
	if kid == "" {
		kid = f.KeyID
	}
	if demoURL == "" {
		demoURL = DefaultDemoURL
	}
	return map[string]string{
		EnvPrivateKeyPEM:     f.PrivateKeyPEM,
		EnvPublicKeyPEM:      f.PublicKeyPEM,
		EnvKeyID:             kid,
		EnvSignatureAgentURL: f.JWKSURL,
		EnvDemoURL:           demoURL,
	}
}

// WriteEnv writes env to path in .env format. PEM newlines are written
// escaped and restored by godotenv when the file is loaded.
func WriteEnv(path string, env map[string]string) error {
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
