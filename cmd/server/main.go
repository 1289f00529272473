package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iamsernine/aptoseidon/internal/api"
	"github.com/iamsernine/aptoseidon/internal/config"
	"github.com/iamsernine/aptoseidon/internal/handler"
	"github.com/iamsernine/aptoseidon/internal/history"
	"github.com/iamsernine/aptoseidon/internal/middleware"
	"github.com/iamsernine/aptoseidon/internal/payment"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/repository"
	"github.com/iamsernine/aptoseidon/internal/stream"
	"github.com/iamsernine/aptoseidon/internal/wallet"
	"github.com/iamsernine/aptoseidon/internal/workflow"
)

func main() {
	// 0. Initialize Logger
	logger.Init("info")

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Persistence
	// Receipt Ledger (Redis > Memory)
	var receipts repository.ReceiptStore
	if cfg.Redis.Addr != "" {
		redisStore, err := repository.NewRedisReceiptStore(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			receipts = redisStore
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory receipts", "error", err)
		}
	}
	if receipts == nil {
		receipts = repository.NewMemReceiptStore()
	}

	// Analysis Records (Postgres, optional)
	var records repository.RecordRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			records, err = repository.NewPostgresRecordRepo(db)
			if err != nil {
				log.Fatalf("Failed to migrate record schema: %v", err)
			}
			logger.Info("✅ Connected to PostgreSQL")
		} else {
			logger.Error("⚠️ Failed to connect to DB, analysis records disabled", "error", err)
		}
	}

	// 3. Initialize Core Services
	payerWallet, err := wallet.NewKeyWallet(cfg.Chain.PrivateKey, cfg.Chain.Network, cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to initialize payer wallet: %v", err)
	}
	sess := payerWallet.Session()
	logger.Info("Payer wallet ready", "address", sess.Address, "network", sess.Network)

	client := api.NewClient(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)
	orchestrator := payment.NewOrchestrator(payerWallet)

	historyCache := history.NewCache(client)
	historyCache.SetAddress(sess.Address)

	broadcaster := stream.NewBroadcaster()

	runner := workflow.NewRunner(client, orchestrator, historyCache, receipts, cfg.Chain.Network)
	if records != nil {
		runner.SetRecords(records)
	}
	runner.SetNotifier(workflow.NotifierFunc(func(attemptID string, state workflow.State, detail string) {
		broadcaster.Publish(stream.Event{
			AttemptID: attemptID,
			State:     string(state),
			Detail:    detail,
			Timestamp: time.Now().UTC(),
		})
	}))

	// 4. Initialize Handlers
	analysisHandler := handler.NewAnalysisHandler(runner, payerWallet)
	historyHandler := handler.NewHistoryHandler(historyCache, sess.Address)
	reputationHandler := handler.NewReputationHandler(client)
	progressHandler := handler.NewProgressHandler(broadcaster)

	// 5. Setup Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "aptoseidon", "network": sess.Network})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(cfg))
	{
		v1.POST("/analyze", analysisHandler.Analyze)
		v1.GET("/history", historyHandler.List)
		v1.POST("/history/select", historyHandler.Select)
		v1.POST("/reputation/rate", reputationHandler.Rate)
		v1.GET("/reputation/rate/:job_id", reputationHandler.Ratings)
		v1.GET("/progress", progressHandler.Stream)

		if records != nil {
			recordsHandler := handler.NewRecordsHandler(records, sess.Address)
			v1.GET("/records", recordsHandler.List)
		}
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 Aptoseidon gateway started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
