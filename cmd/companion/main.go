package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/config"
	"github.com/BananaLabs/oss-companion/internal/gameflow"
	"github.com/BananaLabs/oss-companion/internal/httpapi"
	"github.com/BananaLabs/oss-companion/internal/inject"
	"github.com/BananaLabs/oss-companion/internal/party"
	"github.com/BananaLabs/oss-companion/internal/resolve"
	"github.com/BananaLabs/oss-companion/internal/scanner"
	"github.com/BananaLabs/oss-companion/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lcu := transport.NewLCU(cfg.LeaguePath, sugar)

	var injector inject.Injector
	if cfg.ModToolsPath != "" {
		injector = inject.NewModTools(cfg.ModToolsPath, cfg.LeaguePath, sugar)
	} else {
		injector = inject.NewNoop(sugar)
	}

	svc := party.NewService(ctx, lcu, party.Config{StaleAfter: cfg.StaleAfter}, sugar)
	resolver := resolve.NewEngine(svc, injector, sugar)

	sc := scanner.New(lcu, svc, scanner.Config{
		FullScanInterval:     cfg.FullScanInterval,
		ResponseScanInterval: cfg.ResponseScanInterval,
	}, sugar)
	go sc.Run(ctx)

	watcher := gameflow.NewWatcher(lcu, resolver, cfg.GameflowInterval, sugar)
	go watcher.Run(ctx)

	handler := httpapi.SetupRoutes(svc, sc, resolver, lcu, sugar)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	sugar.Infow("listening", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("server failed", "err", err)
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
