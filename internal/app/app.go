package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/auth"
	"github.com/balloonhub/marketplace-server/internal/broker/kafka"
	"github.com/balloonhub/marketplace-server/internal/config"
	"github.com/balloonhub/marketplace-server/internal/core"
	"github.com/balloonhub/marketplace-server/internal/events"
	"github.com/balloonhub/marketplace-server/internal/service/listings"
	"github.com/balloonhub/marketplace-server/internal/service/messaging"
	"github.com/balloonhub/marketplace-server/internal/store"
	"github.com/balloonhub/marketplace-server/internal/store/sqlite"
	transporthttp "github.com/balloonhub/marketplace-server/internal/transport/http"
)

// App wires together storage, services, core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	producer        *kafka.Producer
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(context.Background(), cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.Topic, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init kafka: %w", err)
		}
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka producer initialized")
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		TTL:      cfg.Auth.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig, cfg.Auth.PasswordCost)
	listingService := listings.New(st)

	hub := core.NewHub(logger)
	publishers := []events.Publisher{hub}
	if producer != nil {
		publishers = append(publishers, producer)
	}
	fanout := events.NewFanout(logger, publishers...)

	messagingService := messaging.New(st, listingService, authService, fanout, logger)

	server := transporthttp.NewServer(context.Background(), hub, transporthttp.Services{
		Auth:      authService,
		Messaging: messagingService,
		Listings:  listingService,
	}, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		producer:        producer,
		log:             logger,
	}, nil
}

// OpenStore opens the SQLite database and applies the schema.
func OpenStore(ctx context.Context, path string) (*sqlite.SQLiteStore, error) {
	st, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopHub()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Closing the hub first ends websocket write loops, which Shutdown does not track.
		stopHub()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close kafka producer")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
