package events

import (
	"context"
	"errors"
)

// Multi рассылает событие во все публикаторы и собирает их ошибки.
type Multi []Publisher

func (m Multi) PublishOrderSettled(ctx context.Context, event OrderSettled) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishOrderSettled(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
