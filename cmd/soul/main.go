package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lws803/soul/internal/auth"
	"github.com/lws803/soul/internal/cache"
	"github.com/lws803/soul/internal/config"
	httpapi "github.com/lws803/soul/internal/http"
	"github.com/lws803/soul/internal/metrics"
	"github.com/lws803/soul/internal/observability/logger"
	"github.com/lws803/soul/internal/store/pg"
	"github.com/lws803/soul/internal/token"
)

func main() {
	// .env es opcional, las env del sistema siempre aplican.
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:          "soul",
		Short:        "Servicio de autenticación multi-plataforma",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "ruta del archivo de configuración")

	root.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		sweepCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	return cfg, nil
}

// buildCore arma el grafo de dependencias común a los comandos.
func buildCore(ctx context.Context, cfg *config.Config) (*pg.Store, cache.Client, *auth.Service, func(), error) {
	store, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("postgres: %w", err)
	}

	cacheClient, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Host:     cfg.Cache.Host,
		Port:     cfg.Cache.Port,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, fmt.Errorf("cache: %w", err)
	}

	codec := token.NewCodec(cfg.JWT.Secret)
	svc := auth.NewService(auth.Deps{
		Users:         store.Users(),
		Platforms:     store.Platforms(),
		PlatformUsers: store.PlatformUsers(),
		Tokens:        store.RefreshTokens(),
		Codec:         codec,
		PKCE:          auth.NewChallengeCache(cacheClient, cfg.Auth.PKCETTL.Std()),
		Config: auth.Config{
			AccessTTL:           cfg.JWT.AccessTTL.Std(),
			RefreshTTL:          cfg.JWT.RefreshTTL.Std(),
			CodeTTL:             cfg.JWT.CodeTTL.Std(),
			RotateRefreshTokens: cfg.Auth.RotateRefreshTokens,
			HostURL:             cfg.Server.HostURL,
		},
	})

	cleanup := func() {
		_ = cacheClient.Close()
		store.Close()
	}
	return store, cacheClient, svc, cleanup, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP y el sweeper de tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, cacheClient, svc, cleanup, err := buildCore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.Flags.Migrate {
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			if err := metrics.RegisterAuth(nil); err != nil {
				return err
			}

			codec := token.NewCodec(cfg.JWT.Secret)
			controller := httpapi.NewAuthController(
				auth.NewCredentialVerifier(store.Users()),
				svc,
				auth.NewRolesService(store.PlatformUsers(), store.RefreshTokens()),
			)
			router := httpapi.NewRouter(httpapi.RouterDeps{
				Controller: controller,
				Guard:      auth.NewGuard(store.PlatformUsers(), cfg.Auth.HubPlatformID),
				Codec:      codec,
				Ping: func(r *http.Request) error {
					if err := store.Ping(r.Context()); err != nil {
						return err
					}
					return cacheClient.Ping(r.Context())
				},
			})

			server := httpapi.NewServer(cfg.Server.Addr, router)
			sweeper := auth.NewSweeper(store.RefreshTokens(), cfg.Auth.SweepInterval.Std())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Run(gctx) })
			g.Go(func() error {
				err := sweeper.Run(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := pg.New(cmd.Context(), cfg.Storage.DSN, pg.Options{})
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer store.Close()

			return store.Migrate(cmd.Context())
		},
	}
}

func sweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Hace una pasada de limpieza de refresh tokens y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := pg.New(cmd.Context(), cfg.Storage.DSN, pg.Options{})
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer store.Close()

			return auth.NewSweeper(store.RefreshTokens(), cfg.Auth.SweepInterval.Std()).RunOnce(cmd.Context())
		},
	}
}
