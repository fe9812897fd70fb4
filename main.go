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

	"github.com/nftforge/text2nft/internal/bootstrap"
	"github.com/nftforge/text2nft/internal/config"
	"github.com/nftforge/text2nft/internal/httpapi"
	"github.com/nftforge/text2nft/internal/logger"
	"github.com/nftforge/text2nft/pkg/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.AppEnv)

	fmt.Println(version.GetBanner())
	if missing := cfg.MissingSecrets(); len(missing) > 0 {
		log.Warn().Strs("keys", missing).Msg("API keys not set; requests to those services will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer stack.Close()

	info := stack.Connector.Session().Info()
	log.Info().
		Str("account", info.Account).
		Str("chain_id", info.ChainID).
		Str("contract", info.ContractAddress).
		Str("fee_wei", stack.Minter.Fee().String()).
		Msg("wallet connected")

	sessions, err := httpapi.NewSessions(cfg.SessionSecret, cfg.SessionTTL, !cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise sessions")
	}

	app := httpapi.NewApp(httpapi.Deps{
		Form:        stack.Form,
		Wallet:      stack.Connector.Session(),
		Sessions:    sessions,
		BaseContext: ctx,
		Logger:      logger.Component(log, "http"),
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(app, log),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server")
	}
	stack.Form.Wait()
	log.Info().Msg("server stopped")
}
