package service

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/metrics"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Step точка внутри транзакции, в которой вызывается StepHook. Нужны для воспроизведения гонок в тестах
// и в сценарии взаимной блокировки.
type Step string

const (
	// StepOwnerLocked операция с корзиной заблокировала строку владельца.
	StepOwnerLocked Step = "owner_locked"
	// StepItemsWritten операция с корзиной записала позиции и пересчитала итог.
	StepItemsWritten Step = "items_written"
	// StepBalanceDebited расчет заказа списал баланс владельца.
	StepBalanceDebited Step = "balance_debited"
	// StepCartPurged расчет заказа удалил позиции корзины.
	StepCartPurged Step = "cart_purged"
)

type StepHook func(ctx context.Context, step Step)

// Settings общие зависимости и настройки сервисов. Нулевые значения допустимы: строгий порядок блокировок,
// политика повторов по умолчанию, без метрик, событий и кэша.
type Settings struct {
	Ordering  domain.LockOrdering
	Retry     RetryPolicy
	Logger    *logrus.Logger
	Metrics   *metrics.Metrics
	Publisher EventPublisher
	Cache     MovieCache
	Hook      StepHook
	Hasher    PasswordHasher
	JWTSecret []byte
}

func (s Settings) ordering() domain.LockOrdering {
	if s.Ordering == "" {
		return domain.LockOrderingStrict
	}
	return s.Ordering
}

func (s Settings) logger() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s Settings) fire(ctx context.Context, step Step) {
	if s.Hook != nil {
		s.Hook(ctx, step)
	}
}

var tracer = otel.Tracer("github.com/fsdevblog/moviestore/internal/service")

// startSpan открывает спан операции сервиса. finish закрывает его, отмечая ошибку.
func startSpan(ctx context.Context, name string) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, name)
	return ctx, func(err error) {
		endSpan(span, err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
