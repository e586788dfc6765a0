package main

import (
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/openmarket/auctiond/internal/auction"
	"github.com/openmarket/auctiond/internal/bid"
	"github.com/openmarket/auctiond/internal/cache"
	"github.com/openmarket/auctiond/internal/clients/products"
	"github.com/openmarket/auctiond/internal/gateway"
	"github.com/openmarket/auctiond/internal/notify"
	"github.com/openmarket/auctiond/internal/sweeper"
)

type Services struct {
	Auctions    *auction.Service
	Bids        *bid.Service
	WebSocket   *gateway.WebSocketHandler
	ConnManager *gateway.ConnectionManager
	Sweeper     *sweeper.Sweeper
}

func setupServices(database *sql.DB, redisClient *redis.Client, notifier *notify.Publisher, config *Config) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	// Live broadcast layer
	wsConfig := gateway.DefaultConnectionConfig()
	wsConfig.PingInterval = time.Duration(config.Websocket.PingIntervalSeconds) * time.Second
	wsConfig.ReadTimeout = time.Duration(config.Websocket.ReadTimeoutSeconds) * time.Second
	connManager := gateway.NewConnectionManager(wsConfig)

	// View counters (optional, redis-backed)
	var viewCounter auction.ViewCounter
	var viewSource sweeper.ViewSource
	if redisClient != nil {
		views := cache.NewViewCounter(redisClient)
		viewCounter = views
		viewSource = views
	}

	// Auctions
	productsClient := products.NewClient(getEnv("PRODUCT_SERVICE_URL", "http://localhost:8081"))
	auctionRepo := auction.NewRepository(database)
	auctionApp := auction.NewApp(auctionRepo, productsClient, viewCounter, clock)
	auctionService := auction.NewService(auctionApp)

	// Bids
	bidRepo := bid.NewRepository(database)
	bidApp := bid.NewApp(bidRepo, auctionRepo, connManager, notifier, clock, bid.Config{
		MaxAttempts:  config.Engine.BidMaxAttempts,
		RetryBackoff: config.bidRetryBackoff(),
	})
	bidService := bid.NewService(bidApp)

	// Sweeper
	sweepRepo := sweeper.NewRepository(database)
	sweep := sweeper.New(sweepRepo, connManager, notifier, viewSource, clock,
		config.sweepInterval(), config.Engine.SweepBatchSize)

	return &Services{
		Auctions:    auctionService,
		Bids:        bidService,
		WebSocket:   gateway.NewWebSocketHandler(connManager, auctionRepo),
		ConnManager: connManager,
		Sweeper:     sweep,
	}
}
