package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/jeweledassist/backend/internal/adapters/http"
	"github.com/jeweledassist/backend/internal/adapters/provider"
	firestorestore "github.com/jeweledassist/backend/internal/adapters/storage/firestore"
	memstore "github.com/jeweledassist/backend/internal/adapters/storage/memory"
	sqlitestore "github.com/jeweledassist/backend/internal/adapters/storage/sqlite"
	"github.com/jeweledassist/backend/internal/app/approval"
	"github.com/jeweledassist/backend/internal/app/bot"
	"github.com/jeweledassist/backend/internal/app/dedupe"
	"github.com/jeweledassist/backend/internal/app/handoff"
	"github.com/jeweledassist/backend/internal/app/rates"
	"github.com/jeweledassist/backend/internal/config"
	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/metrics"
	"github.com/jeweledassist/backend/internal/observability"
)

type stores struct {
	sessions  domain.SessionStore
	customers domain.CustomerStore
	approvals domain.ApprovalStore
	messages  domain.MessageStore
	settings  domain.SettingsStore
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStores(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}

	seedSettings(ctx, st.settings, cfg)

	var sender domain.Sender
	if cfg.ProviderURL != "" {
		logger.Info("using HTTP messaging provider", "url", cfg.ProviderURL)
		sender = provider.NewHTTPSender(cfg.ProviderURL, cfg.ProviderFrom, cfg.ProviderToken)
	} else {
		logger.Info("no provider configured, outbound messages are logged only")
		sender = provider.LogSender{}
	}

	var fetcher rates.Fetcher
	switch {
	case cfg.RateCommand != "":
		logger.Info("rates via subprocess", "command", cfg.RateCommand)
		fetcher = rates.NewSubprocess(cfg.RateCommand)
	case cfg.RateAPIURL != "":
		logger.Info("rates via HTTP", "url", cfg.RateAPIURL)
		fetcher = rates.NewHTTPFetcher(cfg.RateAPIURL, cfg.RateAPIKey)
	default:
		logger.Warn("no rate source configured, using built-in rates")
		fetcher = rates.NewStatic(rates.FallbackGold, rates.FallbackSilver, rates.FallbackPlatinum)
	}

	recorder := metrics.NewRecorder()
	rateSvc := rates.NewService(fetcher, st.settings, recorder)
	approvalSvc := approval.NewService(st.approvals, recorder)
	notifier := handoff.NewOwnerNotifier(sender, st.settings)
	handoffCtl := handoff.NewController(st.sessions, st.customers, notifier, recorder)

	filter := dedupe.New(dedupe.DefaultWindow)
	go filter.Run(ctx)

	engine := bot.NewEngine(bot.Deps{
		Sessions:        st.sessions,
		Customers:       st.customers,
		Messages:        st.messages,
		Settings:        st.settings,
		Sender:          sender,
		Rates:           rateSvc,
		Approvals:       approvalSvc,
		Handoff:         handoffCtl,
		Filter:          filter,
		Recorder:        recorder,
		HandoffFailOpen: cfg.HandoffFailOpen,
	})

	server := httpadapter.NewServer(httpadapter.Deps{
		Engine:    engine,
		Approvals: approvalSvc,
		Handoff:   handoffCtl,
		Rates:     rateSvc,
		Customers: st.customers,
		Messages:  st.messages,
		Settings:  st.settings,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("assist-api listening", "port", cfg.Port, "storage", cfg.StorageBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func buildStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	logger := observability.Logger()

	switch cfg.StorageBackend {
	case "firestore":
		if cfg.GCPProjectID == "" {
			log.Fatal("ASSIST_GCP_PROJECT is required for the firestore backend")
		}
		logger.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, err
		}
		return &stores{sessions: fs, customers: fs, approvals: fs, messages: fs, settings: fs}, nil

	case "sqlite":
		logger.Info("using SQLite storage", "path", cfg.SQLitePath)
		db, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{sessions: db, customers: db, approvals: db, messages: db, settings: db}, nil

	default:
		logger.Info("using in-memory storage")
		return &stores{
			sessions:  memstore.NewSessionStore(),
			customers: memstore.NewCustomerStore(),
			approvals: memstore.NewApprovalStore(),
			messages:  memstore.NewMessageStore(),
			settings:  memstore.NewSettingsStore(nil),
		}, nil
	}
}

// seedSettings writes the environment defaults on first run. Values the
// operator already edited are never overwritten.
func seedSettings(ctx context.Context, store domain.SettingsStore, cfg *config.Config) {
	logger := observability.Logger()

	current, err := store.GetSettings(ctx)
	if err != nil {
		logger.Warn("settings read failed during seeding", "error", err)
		return
	}
	if current != nil && !current.UpdatedAt.IsZero() {
		return
	}

	seed := &domain.StoreSettings{
		StoreLocation:     cfg.StoreLocation,
		MapLink:           cfg.MapLink,
		OwnerNumber:       cfg.OwnerNumber,
		WelcomeMediaURL:   cfg.WelcomeMediaURL,
		ApprovalThreshold: cfg.ApprovalThreshold,
		UpdatedAt:         time.Now(),
	}
	if err := store.UpdateSettings(ctx, seed); err != nil {
		logger.Warn("settings seeding failed", "error", err)
		return
	}
	logger.Info("settings seeded from environment")
}
