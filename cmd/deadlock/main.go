// Команда deadlock воспроизводит встречную блокировку оплаты заказа и очистки корзины на Postgres.
// С -ordering=crossed одна из транзакций прерывается базой и повторяется, со strict обе завершаются
// без взаимной блокировки.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/moviestore/internal/config"
	"github.com/fsdevblog/moviestore/internal/logger"
	"github.com/fsdevblog/moviestore/internal/repository/pgrepo"
	"github.com/fsdevblog/moviestore/internal/scenario"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const serviceName = "deadlock"

func main() {
	conf := config.MustLoadConfig(serviceName, os.Args[1:])
	l := logger.New(os.Stdout, serviceName)

	if err := run(conf, l); err != nil {
		l.WithError(err).Error("scenario failed")
		os.Exit(1)
	}
}

func run(conf *config.Config, l *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := pgrepo.Connect(ctx, conf.MigrationsDir, conf.DatabaseDSN, l)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	unitOfWork := uow.NewUnitOfWork(conn)
	if regErr := pgrepo.Register(unitOfWork); regErr != nil {
		return fmt.Errorf("register repositories: %w", regErr)
	}

	sc := scenario.New(unitOfWork, service.Settings{
		Ordering: conf.Ordering(),
		Retry: service.RetryPolicy{
			MaxAttempts:     conf.MaxTxAttempts,
			InitialInterval: conf.RetryInitialInterval,
			MaxInterval:     conf.RetryMaxInterval,
		},
		Logger: l,
	})

	fx, err := sc.Prepare(ctx, scenario.PrepareArgs{})
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	report, err := sc.RunCrossed(ctx, *fx)
	if report != nil {
		l.WithFields(logrus.Fields{
			"ordering":    report.Ordering,
			"deadlocked":  report.Deadlocked(),
			"victim":      report.Victim,
			"settleTime":  report.Settle.Duration.String(),
			"clearTime":   report.Clear.Duration.String(),
			"orderID":     fx.OrderID,
			"userBalance": balanceOf(report),
		}).Info("scenario finished")
	}
	return err //nolint:wrapcheck
}

func balanceOf(r *scenario.Report) string {
	if r.Settlement == nil {
		return ""
	}
	return r.Settlement.Balance.String()
}
