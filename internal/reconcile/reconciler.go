// Package reconcile фоновая сверка агрегатов: итогов корзин и рейтингов фильмов.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/moviestore/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	KindCart  = "cart"
	KindMovie = "movie"

	defaultTaskTimeout      = 3 * time.Second
	defaultBatchSize   uint = 100
	defaultWorkers     uint = 4
	defaultInterval         = time.Minute
)

// Target сущность с агрегатом: откуда брать id и как пересчитать агрегат по одному id.
type Target struct {
	Kind       string
	IDs        IDLister
	Recomputer Recomputer
}

// Stats итог прохода по одной сущности.
type Stats struct {
	Checked int
	Failed  int
}

// Report итоги прохода по всем сущностям, ключ - Target.Kind.
type Report map[string]Stats

// Reconciler периодически пересчитывает агрегаты всех сущностей заново. Пересчеты идемпотентны, поэтому
// проход можно прервать и повторить в любой момент.
type Reconciler struct {
	targets   []Target
	metrics   *metrics.Metrics
	l         *logrus.Entry
	batchSize uint
	workers   uint
	interval  time.Duration
}

func New(l *logrus.Logger, targets ...Target) *Reconciler {
	return &Reconciler{
		targets: targets,
		l: l.WithFields(logrus.Fields{
			"component": "reconcile",
			"module":    "reconciler",
		}),
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
		interval:  defaultInterval,
	}
}

// SetBatchSize устанавливает кол-во id, обрабатываемых за одну итерацию.
func (r *Reconciler) SetBatchSize(size uint) *Reconciler {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

// SetWorkers устанавливает кол-во воркеров, пересчитывающих агрегаты параллельно.
func (r *Reconciler) SetWorkers(workers uint) *Reconciler {
	if workers > 0 {
		r.workers = workers
	}
	return r
}

func (r *Reconciler) SetInterval(interval time.Duration) *Reconciler {
	if interval > 0 {
		r.interval = interval
	}
	return r
}

func (r *Reconciler) SetMetrics(m *metrics.Metrics) *Reconciler {
	r.metrics = m
	return r
}

// Run выполняет проход сразу и затем каждые interval до отмены контекста.
func (r *Reconciler) Run(ctx context.Context) {
	r.l.WithFields(logrus.Fields{
		"batchSize": r.batchSize,
		"workers":   r.workers,
		"interval":  r.interval.String(),
	}).Info("Starting")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		report, err := r.Pass(ctx)
		if err != nil && ctx.Err() == nil {
			r.l.WithError(err).Error("reconcile pass")
		}
		for kind, stats := range report {
			r.l.WithFields(logrus.Fields{
				"kind":    kind,
				"checked": stats.Checked,
				"failed":  stats.Failed,
			}).Debug("reconciled")
		}

		select {
		case <-ctx.Done():
			r.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
		}
	}
}

// Pass один полный проход по всем сущностям. Ошибка пересчета отдельной сущности учитывается в отчете
// и не прерывает проход, ошибка получения списка id прерывает.
func (r *Reconciler) Pass(ctx context.Context) (Report, error) {
	report := make(Report, len(r.targets))
	for _, target := range r.targets {
		stats, err := r.passTarget(ctx, target)
		report[target.Kind] = stats
		if err != nil {
			return report, fmt.Errorf("reconcile %s: %w", target.Kind, err)
		}
	}
	return report, nil
}

func (r *Reconciler) passTarget(ctx context.Context, target Target) (Stats, error) {
	var (
		stats   Stats
		afterID int64
	)
	for {
		ids, err := r.produce(ctx, target, afterID)
		if err != nil {
			return stats, err
		}
		if len(ids) == 0 {
			return stats, nil
		}

		for _, result := range r.runWorkers(ctx, target, ids) {
			stats.Checked++
			r.metrics.Reconciled(target.Kind, result.Error)
			if result.Error != nil {
				stats.Failed++
				r.l.WithError(result.Error).WithFields(logrus.Fields{
					"worker": result.WorkerID,
					"kind":   target.Kind,
					"id":     result.ID,
				}).Error("recompute aggregate")
			}
		}

		if err = ctx.Err(); err != nil {
			return stats, err //nolint:wrapcheck
		}
		afterID = ids[len(ids)-1]
	}
}

// produce следующая страница id после afterID.
func (r *Reconciler) produce(ctx context.Context, target Target, afterID int64) ([]int64, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultTaskTimeout)
	defer cancel()

	ids, err := target.IDs.ListIDs(produceCtx, afterID, r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	return ids, nil
}

type workerResult struct {
	WorkerID uint
	ID       int64
	Error    error
}

// runWorkers fan-out/fan-in: воркеры разбирают id из канала задач, результаты собираются после
// завершения всех воркеров.
func (r *Reconciler) runWorkers(ctx context.Context, target Target, ids []int64) []workerResult {
	taskCh := make(chan int64, len(ids))
	for _, id := range ids {
		taskCh <- id
	}
	close(taskCh)

	resultCh := make(chan workerResult, len(ids))
	wg := new(sync.WaitGroup)
	for i := range min(r.workers, uint(len(ids))) {
		wg.Add(1)
		go r.worker(ctx, wg, i+1, target, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	results := make([]workerResult, 0, len(ids))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

func (r *Reconciler) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	target Target,
	taskCh <-chan int64,
	resultCh chan<- workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-taskCh:
			if !ok {
				return
			}
			taskCtx, cancel := context.WithTimeout(ctx, defaultTaskTimeout)
			err := target.Recomputer.Recompute(taskCtx, id)
			cancel()
			resultCh <- workerResult{WorkerID: workerID, ID: id, Error: err}
		}
	}
}
