package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resexchange/marketplace/internal/config"
	"github.com/resexchange/marketplace/internal/infrastructure/http/server"
	"github.com/resexchange/marketplace/internal/infrastructure/messaging/nats"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
	"github.com/resexchange/marketplace/internal/infrastructure/persistence/postgres"
	"github.com/resexchange/marketplace/internal/infrastructure/persistence/redis"
	"github.com/resexchange/marketplace/internal/infrastructure/scheduler"
	"github.com/resexchange/marketplace/internal/pkg/clock"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	log := logger.NewLogger()
	log.Info("Starting Marketplace Service")

	cfg, configErr := config.LoadConfig(*configPath)
	if configErr != nil {
		log.Fatal("Failed to load configuration", "error", configErr)
	}

	db, dbErr := postgres.NewConnection(cfg.Database)
	if dbErr != nil {
		log.Fatal("Failed to connect to database", "error", dbErr)
	}
	defer db.Close()

	if migrationErr := postgres.RunMigrations(cfg.Database); migrationErr != nil {
		log.Fatal("Failed to run migrations", "error", migrationErr)
	}

	redisConn, err := redis.NewConnection(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisConn.Close()

	notifier, err := nats.NewNotifier(cfg.NATS.URL, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", "error", err)
	}
	defer notifier.Close()

	dbMetricsCollector := monitoring.NewDBMetricsCollector(db.GetDB())
	dbMetricsCollector.StartCollecting(context.Background(), 30*time.Second)

	checkoutRepo := postgres.NewCheckoutRepository(db)
	expirer := scheduler.NewCheckoutExpirer(
		checkoutRepo,
		clock.NewRealClock(),
		log,
		5*time.Minute,
		cfg.Checkout.StaleAfter(),
	)

	httpServer := server.NewServer(cfg, db, redisConn, notifier, log)

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	go expirer.Start(serverCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		log.Info("Shutting down server...")
		expirer.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}

		serverStopCtx()
	}()

	log.Info("Server starting", "address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed", "error", err)
	}

	<-serverCtx.Done()
	log.Info("Server stopped")
}
