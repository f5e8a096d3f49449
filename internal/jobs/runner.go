package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/observability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx  context.Context
	log  *zap.Logger
	cron *cron.Cron
}

func New(ctx context.Context, log *zap.Logger, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log, cron: cron.New(cron.WithLocation(loc))}
}

// Every — запускать fn раз в interval до отмены контекста раннера.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Cron — запуск по cron-выражению (5 полей, часовой пояс раннера).
// Расписание стартует в Start.
func (r *Runner) Cron(spec, name string, fn Job) error {
	_, err := r.cron.AddFunc(spec, func() { r.run(name, fn) })
	if err != nil {
		return fmt.Errorf("cron %s %q: %w", name, spec, err)
	}
	return nil
}

// Start запускает cron-планировщик и останавливает его вместе с контекстом.
func (r *Runner) Start() {
	r.cron.Start()
	go func() {
		<-r.ctx.Done()
		<-r.cron.Stop().Done()
	}()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			metrics.JobErrors.WithLabelValues(name).Inc()
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, rec))
			r.log.Error("job panic", zap.String("job", name), zap.Any("panic", rec))
		}
	}()
	if err := fn(r.ctx); err != nil {
		metrics.JobErrors.WithLabelValues(name).Inc()
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
	}
	metrics.JobRuns.WithLabelValues(name).Inc()
	metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
