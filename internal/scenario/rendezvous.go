package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/fsdevblog/moviestore/internal/service"
)

// party участник встречи. arrived закрывается, когда участник дошел до своей точки.
type party struct {
	once    sync.Once
	arrived chan struct{}
}

func newParty() *party {
	return &party{arrived: make(chan struct{})}
}

func (p *party) arrive() {
	p.once.Do(func() { close(p.arrived) })
}

// rendezvous встреча двух транзакций: каждая, дойдя до своей точки, ждет другую не дольше timeout.
// Если вторая заблокирована и не может дойти, первая продолжает по таймауту.
type rendezvous struct {
	timeout time.Duration
	first   *party
	second  *party
}

func newRendezvous(timeout time.Duration) *rendezvous {
	return &rendezvous{timeout: timeout, first: newParty(), second: newParty()}
}

// hook хук сервиса, останавливающий транзакцию me на шаге step до прихода other.
func (r *rendezvous) hook(step service.Step, me, other *party) service.StepHook {
	return func(ctx context.Context, got service.Step) {
		if got != step {
			return
		}
		me.arrive()

		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		select {
		case <-other.arrived:
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}
