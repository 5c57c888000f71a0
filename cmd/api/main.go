package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voyagepay/internal/database"
	"voyagepay/internal/handler"
	"voyagepay/internal/infrastructure/gateway"
	"voyagepay/internal/locker"
	"voyagepay/internal/repo"
	"voyagepay/internal/service"
	"voyagepay/internal/worker"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewPostgres()
	if err := database.ApplySchema(ctx, db); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}
	health := database.New(db)

	var locks locker.Locker
	if addr := os.Getenv("PAYMENTS_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		locks = locker.NewRedisLocker(client, logger)
	} else {
		locks = locker.NewMemoryLocker()
	}

	intentRepo := repo.NewIntentRepo(db)
	txnRepo := repo.NewTransactionRepo(db)
	receiptRepo := repo.NewReceiptRepo(db)
	cardGateway := gateway.NewSimCardGateway()
	pointsLedger := gateway.NewSimPointsLedger()

	paymentService := service.NewPaymentService(db, intentRepo, txnRepo, receiptRepo, cardGateway, pointsLedger, locks, logger)

	reconciler := worker.NewReconciliationWorker(db, intentRepo, txnRepo, receiptRepo, cardGateway, logger, 30*time.Second, 5*time.Minute)
	go reconciler.Run(ctx)

	jwtSecret := []byte(os.Getenv("PAYMENTS_JWT_SECRET"))
	router := handler.NewRouter(paymentService, health, logger, jwtSecret)

	port := os.Getenv("PAYMENTS_PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("payment api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	if err := health.Close(); err != nil {
		logger.Error("closing database failed", zap.Error(err))
	}
}
