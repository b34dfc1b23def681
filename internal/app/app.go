package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/moviestore/internal/cache"
	"github.com/fsdevblog/moviestore/internal/config"
	"github.com/fsdevblog/moviestore/internal/events"
	"github.com/fsdevblog/moviestore/internal/metrics"
	"github.com/fsdevblog/moviestore/internal/reconcile"
	"github.com/fsdevblog/moviestore/internal/repository/pgrepo"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/internal/tracing"
	"github.com/fsdevblog/moviestore/internal/transport/api"
	"github.com/fsdevblog/moviestore/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config *config.Config
	Logger *logrus.Logger
	Name   string
}

func New(conf *config.Config, l *logrus.Logger, name string) *App {
	return &App{
		Config: conf,
		Logger: l,
		Name:   name,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address":  a.Config.RunAddress,
		"ordering": a.Config.Ordering(),
	}).Info("Starting app")

	shutdownTracing, tErr := tracing.Init(notifyCtx, a.Name, a.Config.OTLPEndpoint)
	if tErr != nil {
		return fmt.Errorf("app run: %w", tErr)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			a.Logger.WithError(err).Warn("tracing shutdown")
		}
	}()

	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	m := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	settings := service.Settings{
		Ordering: a.Config.Ordering(),
		Retry: service.RetryPolicy{
			MaxAttempts:     a.Config.MaxTxAttempts,
			InitialInterval: a.Config.RetryInitialInterval,
			MaxInterval:     a.Config.RetryMaxInterval,
		},
		Logger:    a.Logger,
		Metrics:   m,
		JWTSecret: []byte(a.Config.JWTSecret),
	}

	publisher := a.initPublisher()
	defer func() {
		if err := publisher.Close(); err != nil {
			a.Logger.WithError(err).Warn("events publisher close")
		}
	}()
	settings.Publisher = publisher

	if a.Config.RedisAddr != "" {
		rdb, rErr := cache.Connect(notifyCtx, a.Config.RedisAddr)
		if rErr != nil {
			// кэш необязателен, продолжаем без него.
			a.Logger.WithError(rErr).Warn("movie cache disabled")
		} else {
			defer rdb.Close()
			settings.Cache = cache.NewMovieCache(rdb, cache.DefaultTTL)
		}
	}

	services, sErr := service.Factory(unitOfWork, settings)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router, rErr := api.New(api.RouterArgs{
		Logger:        a.Logger,
		Metrics:       m,
		ServiceName:   a.Name,
		UserService:   services.UserService,
		MovieService:  services.MovieService,
		RatingService: services.RatingService,
		CartService:   services.CartService,
		OrderService:  services.OrderService,
		JWTSecretKey:  []byte(a.Config.JWTSecret),
		AllowOrigins:  a.Config.CORSOrigins,
	})
	if rErr != nil {
		return fmt.Errorf("app run: %w", rErr)
	}

	targets, tgErr := reconcile.ServiceTargets(unitOfWork, services)
	if tgErr != nil {
		return fmt.Errorf("app run: %w", tgErr)
	}
	reconciler := reconcile.New(a.Logger, targets...).
		SetWorkers(a.Config.ReconcileWorkers).
		SetBatchSize(a.Config.ReconcileBatch).
		SetInterval(a.Config.ReconcileInterval).
		SetMetrics(m)
	go reconciler.Run(notifyCtx)

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.WithError(err).Warn("http server shutdown")
		}
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initPublisher публикаторы событий по настроенным брокерам. Без брокеров события не публикуются.
func (a *App) initPublisher() events.Publisher {
	var publishers events.Multi
	if a.Config.AMQPURL != "" {
		rabbit, err := events.NewRabbitPublisher(a.Config.AMQPURL)
		if err != nil {
			a.Logger.WithError(err).Warn("rabbitmq publisher disabled")
		} else {
			publishers = append(publishers, rabbit)
		}
	}
	if len(a.Config.KafkaBrokers) > 0 {
		publishers = append(publishers, events.NewKafkaPublisher(a.Config.KafkaBrokers))
	}

	switch len(publishers) {
	case 0:
		return events.Nop{}
	case 1:
		return publishers[0]
	default:
		return publishers
	}
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)
	if err := pgrepo.Register(unitOfWork); err != nil {
		return nil, fmt.Errorf("init UOW: %w", err)
	}
	return unitOfWork, nil
}
