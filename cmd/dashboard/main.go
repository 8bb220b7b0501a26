package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pharmacy-dashboard/internal/api"
	"pharmacy-dashboard/internal/auth"
	"pharmacy-dashboard/internal/config"
	"pharmacy-dashboard/internal/dashboard"
	"pharmacy-dashboard/internal/db"
	"pharmacy-dashboard/internal/notify"
	"pharmacy-dashboard/internal/store"
)

func main() {
	logger := log.New(os.Stderr, "dashboard: ", log.LstdFlags)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.Printf("configuration loaded: %v", cfg)

	// Open local cache DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Printf("close db: %v", err)
		}
	}()

	// Restore credentials from a previous run, if any
	authStore := auth.NewStore(cfg.Auth.TokenPath)
	if err := authStore.Restore(); err != nil {
		logger.Fatalf("restore credentials: %v", err)
	}

	client := api.NewClient(cfg.API.BaseURL, authStore, api.Options{
		MutationTimeout: cfg.API.MutationTimeout,
		OnUnauthorized:  authStore.Logout,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// No persisted session; log in with configured credentials.
	if authStore.Token() == "" {
		if cfg.Auth.Email == "" || cfg.Auth.Password == "" {
			logger.Fatalf("no session: set AUTH_EMAIL and AUTH_PASSWORD to log in (token file %s missing or expired)", cfg.Auth.TokenPath)
		}
		res, err := client.Login(ctx, cfg.Auth.Email, cfg.Auth.Password)
		if err != nil {
			logger.Fatalf("login: %v", err)
		}
		if err := authStore.Login(res.Token, res.Pharmacy); err != nil {
			logger.Fatalf("persist session: %v", err)
		}
		logger.Printf("logged in as %s", cfg.Auth.Email)
	}

	orders := store.NewOrderStore(d)
	notifications := store.NewNotificationStore(d)

	var forwarder *notify.Forwarder
	if cfg.Notify.TelegramToken != "" {
		sender, err := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChat)
		if err != nil {
			logger.Fatalf("telegram sender: %v", err)
		}
		forwarder = notify.NewForwarder(notifications, sender)
	}

	dash := dashboard.New(client, authStore, orders, notifications, forwarder, logger)
	defer dash.Close()

	// Refresh the pharmacy profile; an incomplete or unapproved profile can
	// still browse, but that is surfaced up front.
	if profile, err := client.GetProfile(ctx); err != nil {
		logger.Printf("fetch profile: %v", err)
	} else {
		authStore.SetPharmacy(profile)
		if !profile.ProfileComplete() {
			logger.Printf("pharmacy profile is incomplete; finish onboarding to receive orders")
		}
	}

	if err := dash.RefreshOrders(ctx); err != nil {
		logger.Fatalf("initial order fetch: %v", err)
	}

	logger.Printf("dashboard ready, polling notifications every %s", cfg.Notify.PollInterval)
	dash.RunNotificationLoop(ctx, cfg.Notify.PollInterval)
}
