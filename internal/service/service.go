package service

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/marminbh/aggregation-connector/internal/accounts"
	"github.com/marminbh/aggregation-connector/internal/aggregator"
	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/dispatcher"
	"github.com/marminbh/aggregation-connector/internal/httpx"
	"github.com/marminbh/aggregation-connector/internal/platform"
	"github.com/marminbh/aggregation-connector/internal/store"
)

// Outbound REST calls share one transport-level timeout
const outboundTimeout = 30 * time.Second

// Service holds all application dependencies
// This eliminates global state and enables proper dependency injection
type Service struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	Platform   *platform.Client
	Aggregator *aggregator.Client
	Store      *store.Store
	Registry   *accounts.Registry
	Bootstrap  *accounts.Bootstrap
	Dispatcher *dispatcher.Dispatcher
}

// NewService wires the full dependency graph from config down to the
// dispatcher
func NewService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Service {
	httpClient := httpx.NewClient(outboundTimeout, logger)

	platformClient := platform.NewClient(
		cfg.Platform.BaseURL,
		platform.ClientCredentials{
			ClientID:     cfg.Platform.ClientID,
			ClientSecret: cfg.Platform.ClientSecret,
		},
		httpClient,
		logger,
	)
	aggregatorClient := aggregator.NewClient(httpClient, logger)
	correlationStore := store.NewStore(db, logger)

	registry := accounts.NewRegistry(platformClient, logger)
	bootstrap := accounts.NewBootstrap(platformClient, registry, cfg.Subscription, logger)

	disp := dispatcher.NewDispatcher(
		registry,
		bootstrap,
		platformClient,
		aggregatorClient,
		correlationStore,
		cfg.Aggregator,
		cfg.Sync,
		logger,
	)

	return &Service{
		DB:         db,
		Logger:     logger,
		Platform:   platformClient,
		Aggregator: aggregatorClient,
		Store:      correlationStore,
		Registry:   registry,
		Bootstrap:  bootstrap,
		Dispatcher: disp,
	}
}
