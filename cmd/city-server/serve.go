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

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/DefiCity/server/internal/api"
	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/infra/storage"
	"github.com/MRamiBalles/DefiCity/server/internal/network"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/config"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
	"github.com/MRamiBalles/DefiCity/server/internal/wallet"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the city with its HTTP API and WebSocket feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newLogger(cfg))
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) error {
	appLogger.Info("Initializing DeFi City server...", "profile", cfg.Game.Profile)

	cat, err := catalog.LoadOrDefault(cfg.Game.Catalog)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	collector := metrics.Get()

	var persister events.EventPersister
	if cfg.Ledger.Path != "" {
		appLogger.Info("Initializing SQLite ledger...", "path", cfg.Ledger.Path)
		db, err := storage.InitSQLite(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("initializing ledger: %w", err)
		}
		defer db.Close()

		repo := storage.NewSQLiteLedgerRepository(db)
		session := storage.Session{
			ID:             uuid.NewString(),
			StartedAt:      time.Now(),
			Profile:        cfg.Game.Profile,
			StartingTokens: cfg.Game.StartingTokens,
		}
		if err := repo.StartSession(ctx, session); err != nil {
			return fmt.Errorf("starting ledger session: %w", err)
		}
		appLogger.Info("Ledger session opened", "session", session.ID)
		persister = NewLedgerPersister(repo, session.ID, collector)
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLogWithRetention(persister, cfg.Server.EventRetention)
	eventLog.OnPersistError(func(e events.GameEvent, err error) {
		appLogger.Warn("Ledger write failed", "event", e.Type, "seq", e.Seq, "error", err)
	})

	appLogger.Info("Bootstrapping city engine...")
	store := engine.NewStore(cat, settingsFrom(cfg),
		engine.WithEventLog(eventLog),
		engine.WithLogger(appLogger.With("component", "store")),
		engine.WithMetrics(collector),
	)
	cityEngine := engine.NewEngine(store, appLogger)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(store, appLogger.With("component", "hub"), network.Options{
		SendBuffer:      cfg.Server.ClientSendBuffer,
		BroadcastBuffer: cfg.Server.BroadcastBuffer,
		MaxClients:      cfg.Server.MaxClients,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Metrics:         collector,
	})

	if cfg.Wallet.Secret == "" {
		appLogger.Warn("No wallet secret configured; session tokens will not survive a restart", "env", config.SecretEnv)
	}
	apiServer := api.NewServer(api.Deps{
		Store:     store,
		EventLog:  eventLog,
		Authority: wallet.NewAuthority(cfg.Wallet.Secret, cfg.Wallet.Issuer, cfg.Wallet.TokenTTL.Duration),
		Session:   &wallet.Session{},
		Metrics:   collector,
		Logger:    appLogger.With("component", "api"),
		WS:        http.HandlerFunc(hub.ServeWS),
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cityEngine.Run(gctx)
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	hub.StartEventPoller(gctx, eventLog, cfg.Server.EventPollInterval.Duration)

	g.Go(func() error {
		appLogger.Info("DeFi City server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	st := store.State()
	appLogger.Info("Server exited", "tokens", st.Tokens, "buildings", st.TotalBuildings, "events", eventLog.LastSeq())
	return err
}
