package codeagent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Cyclone1070/codeagent/internal/durable"
	"github.com/Cyclone1070/codeagent/internal/queue"
	"github.com/sirupsen/logrus"
)

// WorkerConfig tunes a Worker. Zero values fall back to defaults.
type WorkerConfig struct {
	Consumer    string
	Block       time.Duration
	ClaimIdle   time.Duration
	Heartbeat   time.Duration // how often an in-flight trigger is refreshed; defaults to ClaimIdle/3
	BatchSize   int64
	MaxAttempts int
	Backoff     time.Duration
}

// Worker consumes run triggers and executes them one at a time.
type Worker struct {
	queue  triggerQueue
	fn     runner
	cfg    WorkerConfig
	logger logrus.FieldLogger
}

// NewWorker creates a Worker.
func NewWorker(q triggerQueue, fn runner, cfg WorkerConfig, logger logrus.FieldLogger) *Worker {
	if cfg.Consumer == "" {
		cfg.Consumer = "codeagent"
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = 5 * time.Minute
	}
	if cfg.Heartbeat <= 0 || cfg.Heartbeat >= cfg.ClaimIdle {
		cfg.Heartbeat = cfg.ClaimIdle / 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		queue:  q,
		fn:     fn,
		cfg:    cfg,
		logger: logger.WithField("consumer", cfg.Consumer),
	}
}

// Start consumes triggers until ctx is cancelled. Triggers abandoned by a dead
// consumer are reclaimed before new ones are read.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.queue.EnsureGroup(ctx); err != nil {
		return err
	}
	w.logger.Info("worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		deliveries, err := w.queue.Claim(ctx, w.cfg.Consumer, w.cfg.ClaimIdle, w.cfg.BatchSize)
		if err == nil && len(deliveries) == 0 {
			deliveries, err = w.queue.Read(ctx, w.cfg.Consumer, w.cfg.BatchSize, w.cfg.Block)
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.WithError(err).Warn("failed to read triggers")
			sleep(ctx, w.cfg.Block)
			continue
		}

		for _, d := range deliveries {
			if ctx.Err() != nil {
				break
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle runs one delivery with retries and acknowledges it once an outcome is
// recorded. A delivery interrupted by shutdown stays pending for redelivery.
func (w *Worker) Handle(ctx context.Context, d queue.Delivery) {
	log := w.logger.WithField("message_id", d.MessageID)

	if d.Err != nil {
		log.WithError(d.Err).Warn("dropping malformed trigger")
		w.ack(ctx, log, d.MessageID)
		return
	}

	t := Trigger{RunID: d.Event.ID, ProjectID: d.Event.ProjectID, Value: d.Event.Value}
	log = log.WithFields(logrus.Fields{"run_id": t.RunID, "project_id": t.ProjectID})

	stopHeartbeat := w.heartbeat(ctx, log, d.MessageID)
	defer stopHeartbeat()

	err := durable.Retry(ctx, w.cfg.MaxAttempts, w.cfg.Backoff, func(ctx context.Context, attempt int) error {
		_, err := w.fn.Run(ctx, t)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("run attempt failed")
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			log.Info("run interrupted, leaving trigger pending")
			return
		}
		if ferr := w.fn.OnFailure(ctx, t, err); ferr != nil {
			log.WithError(ferr).Error("failed to record error outcome")
			return
		}
	}

	stopHeartbeat()
	if w.ack(ctx, log, d.MessageID) {
		if err := w.fn.Forget(ctx, t.RunID); err != nil {
			log.WithError(err).Warn("failed to drop checkpoints")
		}
	}
}

// heartbeat keeps messageID from going idle while it is handled. The returned
// stop func may be called more than once.
func (w *Worker) heartbeat(ctx context.Context, log logrus.FieldLogger, messageID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.queue.Touch(ctx, w.cfg.Consumer, messageID); err != nil && ctx.Err() == nil {
					log.WithError(err).Warn("failed to refresh trigger")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (w *Worker) ack(ctx context.Context, log logrus.FieldLogger, messageID string) bool {
	if err := w.queue.Ack(ctx, messageID); err != nil {
		log.WithError(err).Error("failed to acknowledge trigger")
		return false
	}
	return true
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
