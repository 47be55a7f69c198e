package main

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pranayv/auction-backend/internal/archive"
	"github.com/pranayv/auction-backend/internal/commentary"
	"github.com/pranayv/auction-backend/internal/config"
	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/httpapi"
	"github.com/pranayv/auction-backend/internal/hub"
	"github.com/pranayv/auction-backend/internal/room"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var store archive.Store = archive.Nop{}
	if cfg.ArchiveDSN != "" {
		gs, err := archive.OpenGorm(cfg.ArchiveDSN)
		if err != nil {
			logger.Fatal("archive db", zap.Error(err))
		}
		store = gs
		logger.Info("archive store connected")
	}

	clock := clockwork.NewRealClock()
	factory := func(ctx context.Context, initial engine.Room) *room.Session {
		return room.NewSession(ctx, initial, room.Options{
			PingInterval:      cfg.PingInterval,
			PresentationDelay: cfg.PresentationDelay,
			LogoByteLimit:     cfg.LogoByteLimit,
		}, clock, logger, commentary.Static{}, store)
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, factory)

	handler := httpapi.SetupRoutes(h)

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
