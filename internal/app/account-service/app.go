package accountservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/electrorescue/account-service/internal/authflow"
	"github.com/electrorescue/account-service/internal/cache"
	"github.com/electrorescue/account-service/internal/config"
	"github.com/electrorescue/account-service/internal/identityprovider"
	"github.com/electrorescue/account-service/internal/lib/jwt"
	"github.com/electrorescue/account-service/internal/lib/rabbitmq"
	"github.com/electrorescue/account-service/internal/mailprovider"
	"github.com/electrorescue/account-service/internal/migrations"
	authservice "github.com/electrorescue/account-service/internal/services/auth"
	"github.com/electrorescue/account-service/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetAlertQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	alertPublisher := rabbitmq.NewPublisher(ch, rabbitmq.AlertsExchange, rabbitmq.AdminLoginAlertRoutingKey)

	providerClient := identityprovider.NewClient(cfg.ProviderAPIURL, cfg.ProviderAPIKey)
	mailClient := mailprovider.NewClient(cfg.EmailProvider, logger)
	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	flows := authflow.NewStore()

	authService := authservice.New(db, providerClient, mailClient,
		alertPublisher, cacheRedis, flows, jwtMaker, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		a.db.DB.Close()
		return err
	}
}
