package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/metrics"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxTxAttempts        uint = 5
	DefaultRetryInitialInterval      = 50 * time.Millisecond
	DefaultRetryMaxInterval          = time.Second
)

// RetryPolicy повтор транзакций, прерванных базой из-за deadlock или serialization failure.
// Каждая попытка выполняет транзакцию целиком заново.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxTxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultRetryInitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = max(DefaultRetryMaxInterval, p.InitialInterval)
	}
	return p
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return b
}

// txRunner выполняет функцию в транзакции unit of work с повторами по RetryPolicy.
type txRunner struct {
	uow     uow.UOW
	policy  RetryPolicy
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func newTxRunner(u uow.UOW, settings Settings, module string) *txRunner {
	return &txRunner{
		uow:     u,
		policy:  settings.Retry.normalize(),
		metrics: settings.Metrics,
		log: settings.logger().WithFields(logrus.Fields{
			"component": "service",
			"module":    module,
		}),
	}
}

// run выполняет fn в транзакции. Ошибки domain.ErrDeadlock и domain.ErrSerialization повторяются с
// экспоненциальной задержкой, остальные возвращаются сразу.
func (r *txRunner) run(ctx context.Context, operation string, fn func(ctx context.Context, tx uow.TX) error) error {
	var attempt uint
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		txErr := r.uow.Do(ctx, fn)
		if txErr != nil && !domain.IsRetryable(txErr) {
			return struct{}{}, backoff.Permanent(txErr)
		}
		return struct{}{}, txErr
	},
		backoff.WithBackOff(r.policy.backOff()),
		backoff.WithMaxTries(r.policy.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.metrics.TxRetried(operation)
			r.log.WithError(err).WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   attempt,
				"retryIn":   next.String(),
			}).Warn("transaction aborted, retrying")
		}),
	)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if domain.IsRetryable(err) {
		r.metrics.TxAborted(operation)
		r.log.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"attempts":  attempt,
		}).Error("transaction aborted, attempts exhausted")
	}
	return err
}
