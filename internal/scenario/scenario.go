// Package scenario воспроизводит взаимную блокировку между расчетом заказа (T1) и очисткой корзины (T2).
//
// T1 блокирует строку юзера при списании баланса и затем удаляет позиции корзины. T2 при перекрестном
// порядке сначала удаляет позиции и пересчитывает итог, затем блокирует юзера. Обе транзакции
// останавливаются после первой блокировки и ждут друг друга, после чего каждая идет за блокировкой,
// которую держит другая. База прерывает одну из них, жертва затем повторяется в одиночку.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	NameSettle = "T1:mark_paid"
	NameClear  = "T2:clear_cart"

	defaultRendezvousTimeout = 2 * time.Second
)

// Fixture заказ, оформленный из корзины с позициями и ожидающий оплаты.
type Fixture struct {
	UserID  uuid.UUID
	MovieID int64
	OrderID int64
}

// Outcome результат первой попытки одной транзакции.
type Outcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (o Outcome) deadlocked() bool {
	return errors.Is(o.Err, domain.ErrDeadlock)
}

// Report итог сценария. Victim пустой, если взаимной блокировки не было.
type Report struct {
	Ordering   domain.LockOrdering
	Settle     Outcome
	Clear      Outcome
	Victim     string
	RetryErr   error
	Settlement *service.Settlement
}

// Deadlocked ровно одна транзакция была прервана базой.
func (r *Report) Deadlocked() bool {
	return r.Victim != ""
}

type Scenario struct {
	uow      uow.UOW
	settings service.Settings
	timeout  time.Duration
	l        *logrus.Entry
}

// New сценарий поверх unit of work u. settings задают порядок блокировок операций с корзиной и политику
// повторов для повтора жертвы. Первые попытки T1 и T2 выполняются без повторов.
func New(u uow.UOW, settings service.Settings) *Scenario {
	if settings.Logger == nil {
		settings.Logger = logrus.StandardLogger()
	}
	if settings.Ordering == "" {
		settings.Ordering = domain.LockOrderingStrict
	}
	return &Scenario{
		uow:      u,
		settings: settings,
		timeout:  defaultRendezvousTimeout,
		l: settings.Logger.WithFields(logrus.Fields{
			"component": "scenario",
			"module":    "deadlock",
		}),
	}
}

// SetRendezvousTimeout сколько транзакция ждет другую в точке встречи.
func (s *Scenario) SetRendezvousTimeout(timeout time.Duration) *Scenario {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// RunCrossed запускает T1 = MarkPaid(fx.OrderID) и T2 = Clear(fx.UserID) одновременно, определяет жертву
// взаимной блокировки и повторяет ее в одиночку. Ошибки, отличные от deadlock, возвращаются вместе
// с отчетом.
func (s *Scenario) RunCrossed(ctx context.Context, fx Fixture) (*Report, error) {
	rv := newRendezvous(s.timeout)

	settleSettings := s.firstAttempt(rv.hook(service.StepBalanceDebited, rv.first, rv.second))
	clearSettings := s.firstAttempt(rv.hook(s.clearRendezvousStep(), rv.second, rv.first))

	orders, err := service.NewOrderService(s.uow, settleSettings)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	carts, err := service.NewCartService(s.uow, clearSettings)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	report := &Report{
		Ordering: s.settings.Ordering,
		Settle:   Outcome{Name: NameSettle},
		Clear:    Outcome{Name: NameClear},
	}

	wg := new(sync.WaitGroup)
	wg.Add(2) //nolint:mnd
	go func() {
		defer wg.Done()
		started := time.Now()
		report.Settlement, report.Settle.Err = orders.MarkPaid(ctx, fx.OrderID)
		report.Settle.Duration = time.Since(started)
	}()
	go func() {
		defer wg.Done()
		started := time.Now()
		_, report.Clear.Err = carts.Clear(ctx, fx.UserID)
		report.Clear.Duration = time.Since(started)
	}()
	wg.Wait()

	for _, o := range []Outcome{report.Settle, report.Clear} {
		l := s.l.WithFields(logrus.Fields{
			"tx":       o.Name,
			"duration": o.Duration.String(),
		})
		if o.Err != nil {
			l = l.WithError(o.Err)
		}
		l.Info("first attempt finished")
	}

	switch {
	case report.Settle.deadlocked() && report.Clear.deadlocked():
		return report, errors.New("scenario: both transactions aborted")
	case report.Settle.deadlocked():
		report.Victim = NameSettle
		report.Settlement, report.RetryErr = s.retrySettle(ctx, fx)
	case report.Clear.deadlocked():
		report.Victim = NameClear
		report.RetryErr = s.retryClear(ctx, fx)
	}

	if report.Victim != "" {
		s.l.WithField("victim", report.Victim).WithError(report.RetryErr).Info("victim retried alone")
	}
	return report, errors.Join(
		unexpected(report.Settle.Err),
		unexpected(report.Clear.Err),
		report.RetryErr,
	)
}

// clearRendezvousStep первая блокировка T2: позиции при перекрестном порядке, юзер при строгом.
func (s *Scenario) clearRendezvousStep() service.Step {
	if s.settings.Ordering == domain.LockOrderingCrossed {
		return service.StepItemsWritten
	}
	return service.StepOwnerLocked
}

func (s *Scenario) firstAttempt(hook service.StepHook) service.Settings {
	settings := s.settings
	settings.Retry.MaxAttempts = 1
	settings.Hook = hook
	return settings
}

func (s *Scenario) retrySettle(ctx context.Context, fx Fixture) (*service.Settlement, error) {
	orders, err := service.NewOrderService(s.uow, s.settings)
	if err != nil {
		return nil, fmt.Errorf("scenario retry: %w", err)
	}
	return orders.MarkPaid(ctx, fx.OrderID) //nolint:wrapcheck
}

func (s *Scenario) retryClear(ctx context.Context, fx Fixture) error {
	carts, err := service.NewCartService(s.uow, s.settings)
	if err != nil {
		return fmt.Errorf("scenario retry: %w", err)
	}
	_, err = carts.Clear(ctx, fx.UserID)
	return err //nolint:wrapcheck
}

func unexpected(err error) error {
	if err == nil || errors.Is(err, domain.ErrDeadlock) {
		return nil
	}
	return err
}
