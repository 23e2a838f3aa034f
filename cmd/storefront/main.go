package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := applog.Init(cfg.LogLevel, cfg.LogFile, cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("config.loaded",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.String("db", cfg.DBDSN),
		zap.String("supplier_base_url", cfg.Supplier.BaseURL),
		zap.Duration("supplier_token_buffer", cfg.Supplier.TokenBuffer),
		zap.Int("supplier_max_attempts", cfg.Supplier.Backoff.MaxAttempts),
		zap.Bool("smtp", cfg.SMTP.Host != ""),
	)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db.open", zap.Error(err))
	}
	defer db.Close()

	auth, err := services.NewAdminAuth(cfg.AdminPassword, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal("admin.auth", zap.Error(err))
	}
	if !auth.Enabled() {
		logger.Warn("admin.disabled", zap.String("hint", "set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH"))
	}

	deps := handlers.NewDeps(db, cfg, auth, nil)
	app := handlers.NewApp(cfg, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("server.shutdown")
		_ = app.Shutdown()
	}()

	logger.Info("server.listen", zap.String("addr", ":"+cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server.listen", zap.Error(err))
	}
}
