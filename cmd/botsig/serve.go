package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openbotauth/botsig"
	botsighttp "github.com/openbotauth/botsig/http"
	"github.com/openbotauth/botsig/internal/config"
	"github.com/openbotauth/botsig/internal/metrics"
	"github.com/openbotauth/botsig/internal/widget"
	"github.com/openbotauth/botsig/replay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr string
		demo bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fetch widget API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Widget.Addr
			}
			log := a.log

			signer, err := a.cfg.Signer()
			switch {
			case errors.Is(err, config.ErrIncomplete):
				log.Warn("agent keys are not configured, serving unsigned fetches only", zap.Error(err))
			case err != nil:
				return err
			}

			m := metrics.New()
			if err := m.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			wcfg := widget.Config{
				Signer:        signer,
				SignedDefault: a.cfg.Widget.SignedDefault,
				ClientOptions: []botsighttp.ClientOption{
					botsighttp.WithTimeout(a.cfg.Client.Timeout),
					botsighttp.WithMaxRedirects(a.cfg.Client.MaxRedirects),
					botsighttp.WithLogger(log),
				},
				Metrics: m,
				Logger:  log,
			}
			if demo {
				store, closeStore, err := newReplayStore(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer closeStore()
				wcfg.Demo = &widget.Demo{
					Resolver: botsighttp.NewJWKSResolver(
						botsighttp.WithJWKSURL(a.cfg.Agent.SignatureAgentURL),
						botsighttp.WithAllowedAgents(a.cfg.Agent.SignatureAgentURL),
					),
					Store:    store,
				}
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           widget.New(wcfg).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				log.Info("widget listening",
					zap.String("addr", addr),
					zap.Bool("has_keys", signer != nil),
					zap.Bool("demo", demo))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			group.Go(func() error {
				<-ctx.Done()
				log.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			return group.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default WIDGET_ADDR or :8089)")
	cmd.Flags().BoolVar(&demo, "demo", true, "serve a verifying demo origin at "+widget.DemoPath)
	return cmd
}

// newReplayStore builds the nonce store of the demo origin. Redis is
// pinged so a bad address fails at startup.
func newReplayStore(ctx context.Context, cfg *config.Config) (replay.Store, func(), error) {
	switch cfg.Replay.Kind {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Replay.Redis.Addr,
			DB:   cfg.Replay.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Replay.Redis.Addr, err)
		}
		return replay.NewRedis(client, cfg.Replay.Redis.Prefix), func() { _ = client.Close() }, nil
	default:
		return replay.NewMemory(botsig.MaxWindow), func() {}, nil
	}
}
