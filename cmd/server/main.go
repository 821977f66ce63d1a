// Command server runs the admin gateway: it restores the upstream session
// from Redis, keeps it silently renewed, and serves the SPA-facing API.
//
// @title        DocuChat Admin Gateway API
// @version      1.0
// @description  Administrative gateway for the document-management and retrieval-augmented chat backend.
// @BasePath     /
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docuchat/admin-gateway/internal/api"
	"github.com/docuchat/admin-gateway/internal/core/service"
	mongodb "github.com/docuchat/admin-gateway/internal/infrastructure/db/mongo"
	redisdb "github.com/docuchat/admin-gateway/internal/infrastructure/db/redis"
	"github.com/docuchat/admin-gateway/internal/infrastructure/queue"
	"github.com/docuchat/admin-gateway/internal/infrastructure/upstream"
	"github.com/docuchat/admin-gateway/internal/pkg/config"
	"github.com/docuchat/admin-gateway/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	rdb, err := redisdb.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	mongoClient, db, err := mongodb.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	// --- Upstream clients ---
	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, log)
	authClient := upstream.NewAuthClient(client, cfg.Upstream.LoginPath, cfg.Upstream.RefreshPath)
	documentClient := upstream.NewDocumentClient(client)
	chatClient := upstream.NewChatClient(client)

	// --- Core services ---
	tokenStore := redisdb.NewTokenStore(rdb, cfg.Session.ExpiryMargin)
	sessionManager := service.NewSessionService(tokenStore, authClient, cfg.Upstream.RequiredUserType, cfg.Session.CheckInterval, log)
	defer sessionManager.Close()

	if err := sessionManager.Init(ctx); err != nil {
		// A failed restore is not fatal: the gateway starts unauthenticated
		// and the SPA shows the login form.
		log.Warn().Err(err).Msg("session restore failed")
	}

	chatRepo := mongodb.NewChatRepository(db)
	dispatcher := queue.NewDispatcher(0, chatRepo, log)
	dispatcher.Start()

	typeCache := redisdb.NewTypeCache(rdb)
	documentService := service.NewDocumentService(documentClient, sessionManager, typeCache, log)
	chatService := service.NewChatService(chatClient, sessionManager, chatRepo, dispatcher, log)

	// --- HTTP ---
	e := api.NewRouter(sessionManager, documentService, chatService, rdb, db, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("upstream", cfg.Upstream.BaseURL).Msg("admin gateway started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// In-flight requests have finished; flush whatever transcripts they
	// enqueued before the process exits.
	dispatcher.Stop()
}
