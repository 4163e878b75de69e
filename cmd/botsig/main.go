// Command botsig signs agent requests, fetches pages as a signed or
// unsigned agent, manages agent keys and serves the fetch widget.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openbotauth/botsig/internal/config"
	"github.com/openbotauth/botsig/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exitError ends the command with code and no further message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type app struct {
	configPath string
	envFiles   []string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	var ee *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ee):
		return ee.code
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newRootCmd() *cobra.Command {
	a := &app{configPath: os.Getenv(config.EnvConfigPath)}

	root := &cobra.Command{
		Use:           "botsig",
		Short:         "RFC 9421 agent request signing for OpenBotAuth",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath, a.envFiles...)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, Name: "botsig"})
			cmd.SetContext(logger.ToContext(cmd.Context(), a.log))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", a.configPath, "YAML config file (env "+config.EnvConfigPath+")")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default "+strings.Join(config.DefaultEnvFiles, ",")+")")

	root.AddCommand(
		newFetchCmd(a),
		newSignCmd(a),
		newKeygenCmd(),
		newParseKeysCmd(a),
		newServeCmd(a),
	)
	return root
}

// parseHeaders turns repeated name=value flags into pairs, keeping order.
func parseHeaders(values []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected name=value", v)
		}
		pairs = append(pairs, [2]string{name, strings.TrimSpace(value)})
	}
	return pairs, nil
}
