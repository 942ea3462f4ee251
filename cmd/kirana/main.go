package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kirana/internal/bot"
	"kirana/internal/config"
	apphttp "kirana/internal/http"
	applog "kirana/internal/log"
	"kirana/internal/services"
	"kirana/internal/store"
	memstore "kirana/internal/store/memory"
	mongostore "kirana/internal/store/mongo"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var docs store.DocumentStore
	switch cfg.DataBackend {
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		st, err := mongostore.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			logger.Error("Failed to connect to MongoDB", applog.FieldError, err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := st.Close(closeCtx); err != nil {
				logger.Error("Mongo disconnect error", applog.FieldError, err)
			}
		}()
		docs = st
		logger.Info("Initialized Mongo backend", "database", cfg.MongoDatabase)
	default:
		docs = memstore.New()
		logger.Info("Initialized memory backend")
	}

	ledger := services.NewLedgerService(docs)

	var telegram *bot.Telegram
	if cfg.TelegramMode != config.TelegramOff {
		interp := bot.NewInterpreter(ledger)
		tg, err := bot.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramWebhookSecret, interp)
		if err != nil {
			logger.Error("Failed to initialize Telegram bot", applog.FieldError, err)
			os.Exit(1)
		}
		telegram = tg
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, telegram, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"telegram_mode", cfg.TelegramMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if telegram != nil && cfg.TelegramMode == config.TelegramPolling {
		g.Go(func() error {
			logger.Info("Starting Telegram long polling")
			if err := telegram.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
