package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-accounts/internal/config"
	httpserver "github.com/tendant/simple-accounts/internal/http"
	"github.com/tendant/simple-accounts/internal/notification"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/token"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	store := repository.NewAccountsRepository(db)

	tokens, err := token.NewProvider(token.Config{
		Secret:           []byte(cfg.TokenSecret),
		ConfirmEmailTTL:  cfg.ConfirmTokenTTL,
		ResetPasswordTTL: cfg.ResetTokenTTL,
		Issuer:           cfg.TokenIssuer,
	}, store)
	if err != nil {
		logger.Error("failed to create token provider", "error", err)
		os.Exit(1)
	}

	lockout := &auth.LockoutPolicy{
		MaxFailedAttempts:   cfg.LockoutMaxAttempts,
		LockoutDuration:     cfg.LockoutDuration,
		ResetCountOnLockout: cfg.LockoutResetCounter,
	}

	authentication := auth.NewAuthenticationService(auth.AuthConfig{
		UniformFailures: cfg.UniformLoginErrors,
	}, store, lockout, logger)

	// Wire the SMTP sender if configured; links are logged otherwise.
	var notifier auth.Notifier
	if cfg.HasSMTP() {
		notifier = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email service enabled")
	} else {
		logger.Warn("SMTP not configured, confirmation and reset links will only be logged")
	}

	registration := auth.NewRegistrationService(store, tokens, notifier, nil, logger, cfg.AppBaseURL)
	passwordReset := auth.NewPasswordResetService(store, tokens, notifier, nil, logger, cfg.AppBaseURL)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                 logger,
		Authentication:         authentication,
		Registration:           registration,
		PasswordReset:          passwordReset,
		RateLimitEnabled:       cfg.RateLimitEnabled,
		AuthRequestsPerMinute:  cfg.AuthRequestsPerMinute,
		ResetRequestsPerWindow: cfg.ResetRequestsPerWindow,
		ResetWindow:            time.Duration(cfg.ResetWindowMinutes) * time.Minute,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
