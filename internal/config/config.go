// Package config loads the agent and widget configuration from an optional
// YAML file, .env files and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/openbotauth/botsig"
	"github.com/openbotauth/botsig/keyfile"
	"gopkg.in/yaml.v3"
)

// ErrIncomplete is returned by Validate when required settings are missing.
var ErrIncomplete = errors.New("configuration is incomplete")

// EnvConfigPath names the environment variable holding the YAML file path.
const EnvConfigPath = "BOTSIG_CONFIG"

// DefaultEnvFiles are the .env files Load reads. Missing files are skipped.
var DefaultEnvFiles = []string{".env", "../../.env"}

// Config is the complete configuration. It is not modified after Load.
type Config struct {
	Agent struct {
		PrivateKeyPEM     string        `yaml:"private_key_pem"`
		PublicKeyPEM      string        `yaml:"public_key_pem"`
		KeyID             string        `yaml:"kid"`
		SignatureAgentURL string        `yaml:"signature_agent_url"`
		DemoURL           string        `yaml:"demo_url"`
		Window            time.Duration `yaml:"window"`
	} `yaml:"agent"`

	Widget struct {
		Addr          string `yaml:"addr"`
		SignedDefault bool   `yaml:"signed_default"`
	} `yaml:"widget"`

	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Replay struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"replay"`

	Client struct {
		Timeout      time.Duration `yaml:"timeout"`
		MaxRedirects int           `yaml:"max_redirects"`
	} `yaml:"client"`
}

// Load reads the YAML file at path (skipped when empty), then the given
// .env files (DefaultEnvFiles when none), then applies environment
// overrides and defaults.
func Load(path string, envFiles ...string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if c.Agent.Window < 0 || c.Agent.Window > botsig.MaxWindow {
		return nil, fmt.Errorf("%w: agent.window must be at most %s", botsig.ErrInvalidWindow, botsig.MaxWindow)
	}
	switch c.Replay.Kind {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown replay kind %q", c.Replay.Kind)
	}
	return &c, nil
}

// FromEnv is Load with the YAML path taken from BOTSIG_CONFIG.
func FromEnv(envFiles ...string) (*Config, error) {
	return Load(os.Getenv(EnvConfigPath), envFiles...)
}

func (c *Config) applyDefaults() {
	if c.Agent.DemoURL == "" {
		c.Agent.DemoURL = keyfile.DefaultDemoURL
	}
	if c.Agent.Window == 0 {
		c.Agent.Window = botsig.MaxWindow
	}
	if c.Widget.Addr == "" {
		c.Widget.Addr = ":8089"
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Replay.Kind == "" {
		c.Replay.Kind = "memory"
	}
	if c.Replay.Redis.Addr == "" {
		c.Replay.Redis.Addr = "localhost:6379"
	}
	if c.Replay.Redis.Prefix == "" {
		c.Replay.Redis.Prefix = "botsig:nonce"
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 10 * time.Second
	}
	if c.Client.MaxRedirects == 0 {
		c.Client.MaxRedirects = 5
	}
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := getEnv(keyfile.EnvPrivateKeyPEM); ok {
		c.Agent.PrivateKeyPEM = unescapePEM(v)
	}
	if v, ok := getEnv(keyfile.EnvPublicKeyPEM); ok {
		c.Agent.PublicKeyPEM = unescapePEM(v)
	}
	if v, ok := getEnv(keyfile.EnvKeyID); ok {
		c.Agent.KeyID = v
	}
	if v, ok := getEnv(keyfile.EnvSignatureAgentURL); ok {
		c.Agent.SignatureAgentURL = v
	}
	if v, ok := getEnv(keyfile.EnvDemoURL); ok {
		c.Agent.DemoURL = v
	}
	if v, ok := getEnv("WIDGET_ADDR"); ok {
		c.Widget.Addr = v
	} else if v, ok := getEnv("WIDGET_PORT"); ok {
		c.Widget.Addr = ":" + v
	}
	if v, ok := getEnv("WIDGET_SIGNED_DEFAULT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid WIDGET_SIGNED_DEFAULT %q: %w", v, err)
		}
		c.Widget.SignedDefault = b
	}
	if v, ok := getEnv("LOG_ENV"); ok {
		c.Log.Env = v
	}
	if v, ok := getEnv("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnv("REPLAY_KIND"); ok {
		c.Replay.Kind = strings.ToLower(v)
	}
	if v, ok := getEnv("REDIS_ADDR"); ok {
		c.Replay.Redis.Addr = v
	}
	if v, ok := getEnv("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Replay.Redis.DB = n
	}
	return nil
}

func getEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// unescapePEM restores PEM values whose newlines were written as "\n".
func unescapePEM(v string) string {
	return strings.ReplaceAll(v, `\n`, "\n")
}

// Validate reports which agent settings are missing. Secret values are
// never included in the error.
func (c *Config) Validate() error {
	var missing []string
	if c.Agent.PrivateKeyPEM == "" {
		missing = append(missing, keyfile.EnvPrivateKeyPEM)
	}
	if c.Agent.KeyID == "" {
		missing = append(missing, keyfile.EnvKeyID)
	}
	if c.Agent.SignatureAgentURL == "" {
		missing = append(missing, keyfile.EnvSignatureAgentURL)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// Credentials returns the agent credentials.
func (c *Config) Credentials() (botsig.Credentials, error) {
	if err := c.Validate(); err != nil {
		return botsig.Credentials{}, err
	}
	return botsig.Credentials{
		PrivateKeyPEM:     c.Agent.PrivateKeyPEM,
		KeyID:             c.Agent.KeyID,
		SignatureAgentURL: c.Agent.SignatureAgentURL,
	}, nil
}

// Signer parses the agent key and returns a signer using the configured
// window.
func (c *Config) Signer() (*botsig.Signer, error) {
	creds, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	return botsig.NewSigner(creds, botsig.WithWindow(c.Agent.Window))
}
