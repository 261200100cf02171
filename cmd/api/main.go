package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reviewhub/catalog-reviews/internal/config"
	"github.com/reviewhub/catalog-reviews/internal/delivery/events"
	httpDelivery "github.com/reviewhub/catalog-reviews/internal/delivery/http"
	"github.com/reviewhub/catalog-reviews/internal/delivery/http/handler"
	"github.com/reviewhub/catalog-reviews/internal/pkg/cache"
	"github.com/reviewhub/catalog-reviews/internal/pkg/database"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
	cacheRepo "github.com/reviewhub/catalog-reviews/internal/repository/cache"
	"github.com/reviewhub/catalog-reviews/internal/repository/postgres"
	"github.com/reviewhub/catalog-reviews/internal/usecase/catalog"
	"github.com/reviewhub/catalog-reviews/internal/usecase/rating"
	"github.com/reviewhub/catalog-reviews/internal/usecase/review"
	"github.com/reviewhub/catalog-reviews/internal/usecase/vote"

	_ "github.com/reviewhub/catalog-reviews/docs"
)

// @title Catalog Reviews API
// @version 1.0
// @description Review and rating subsystem of the product catalog: review CRUD, helpful votes, and denormalized rating summaries.

// @contact.name API Support
// @contact.url http://github.com/reviewhub/catalog-reviews

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Products
// @tag.description Catalog product endpoints

// @tag.name Reviews
// @tag.description Review and vote endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Catalog Reviews API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}
	appLogger.Info("Database migrations applied")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	productRepo := postgres.NewProductRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.StatsTTL,
		cfg.Cache.ReviewsListTTL,
	)

	aggregator := rating.NewAggregator(reviewRepo, productRepo, appLogger)
	catalogService := catalog.NewService(productRepo, appLogger)
	reviewService := review.NewService(reviewRepo, productRepo, aggregator, redisCache, publisher, appLogger)
	voteService := vote.NewService(reviewRepo, voteRepo, redisCache, appLogger)

	productHandler := handler.NewProductHandler(catalogService, appLogger)
	reviewHandler := handler.NewReviewHandler(reviewService, voteService, appLogger)

	router := httpDelivery.NewRouter(productHandler, reviewHandler, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
