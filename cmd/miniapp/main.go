package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/config"
	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
	"github.com/nurilloh-an/telegram-mini-app/internal/identity"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
	"github.com/nurilloh-an/telegram-mini-app/internal/session"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var native *identity.NativeSession
	if cfg.Miniapp.NativeUserID != 0 {
		native = &identity.NativeSession{
			ID:           cfg.Miniapp.NativeUserID,
			FirstName:    cfg.Miniapp.NativeFirstName,
			LastName:     cfg.Miniapp.NativeLastName,
			Username:     cfg.Miniapp.NativeUsername,
			LanguageCode: cfg.Miniapp.NativeLanguageCode,
		}
	}

	defaultLang, ok := domain.ParseLanguage(cfg.Miniapp.DefaultLanguage)
	if !ok {
		defaultLang = domain.LanguageUz
	}

	s, err := session.New(session.Options{
		BackendURL: cfg.Miniapp.BackendURL,
		StateDir:   cfg.Miniapp.StateDir,
		GuestID:    cfg.Guest.FallbackID,
		Native:     native,
		Identity: identity.Config{
			MinPhoneDigits:  cfg.Miniapp.MinPhoneDigits,
			DefaultLanguage: defaultLang,
		},
	}, logger, observability.NewInmem(256))
	if err != nil {
		logger.Fatal("session init failed", zap.Error(err))
	}

	st := s.Bootstrap(ctx)
	logger.Info("identity resolved",
		zap.String("phase", st.Phase.String()),
		zap.String("reason", st.Reason.String()),
	)

	logger.Info("miniapp gateway listening", zap.String("addr", cfg.Miniapp.Addr))
	if err := s.ListenAndServe(ctx, cfg.Miniapp.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("miniapp gateway stopped")
}
