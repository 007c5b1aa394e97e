// main.go
package main

import (
	"log"

	"github.com/sriman99/Evently-Challenge/cmd"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/lock"
	"github.com/sriman99/Evently-Challenge/internal/queue"
	"github.com/sriman99/Evently-Challenge/internal/usecase"
	"github.com/sriman99/Evently-Challenge/internal/wire"
	"github.com/sriman99/Evently-Challenge/internal/worker"
	"github.com/sriman99/Evently-Challenge/pkg/database"
	"github.com/sriman99/Evently-Challenge/pkg/redisclient"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Connect to Redis: backs both the seat lock manager and the sweep
	// scheduler.
	redisClient, err := redisclient.New(config.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	locks := lock.NewRedisManager(redisClient, logger)

	// Lifecycle event publisher
	var events queue.Publisher = queue.NopPublisher{}
	if config.AMQP.Enabled {
		amqpPub, err := queue.NewAMQPPublisher(config.AMQP.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to AMQP broker", zap.Error(err))
		}
		events = amqpPub
	}
	defer events.Close()

	payments := usecase.NewStubGateway(logger)

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, locks, payments, events, config, logger)

	// Run the expiry sweeper alongside the HTTP server.
	sweeper := worker.NewSweeper(config, app.Service.Sweeper, logger)
	defer sweeper.Shutdown()
	go func() {
		if err := sweeper.Start(config.Booking.SweepInterval); err != nil {
			logger.Fatal("Sweeper failed", zap.Error(err))
		}
	}()

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
