// Package tasks runs the background work of the back office on asynq:
// delayed retries of webhook reconciliations and the periodic billing sweep.
package tasks

//go:generate mockgen -source=tasks.go -destination=tasks_mock.go -package=tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
)

const (
	TypeReconcileRetry = "reconcile:retry"
	TypeLedgerSweep    = "ledger:sweep"
)

// Enqueuer is the part of *asynq.Client the queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, ev payment.Event) (payment.Result, error)
}

type Sweeper interface {
	SweepDue(ctx context.Context) (int, error)
}

type ReconcilePayload struct {
	ProviderPaymentID string          `json:"provider_payment_id"`
	RawPayload        json.RawMessage `json:"raw_payload,omitempty"`
}

func NewReconcileTask(ev payment.Event) (*asynq.Task, error) {
	payload := ReconcilePayload{ProviderPaymentID: ev.ProviderPaymentID}
	if json.Valid(ev.RawPayload) {
		payload.RawPayload = ev.RawPayload
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding reconcile payload: %w", err)
	}

	return asynq.NewTask(TypeReconcileRetry, data), nil
}

// RetryQueue schedules another reconciliation attempt for a webhook that
// failed transiently.
type RetryQueue struct {
	client     Enqueuer
	maxRetries int
	delay      time.Duration
}

func NewRetryQueue(client Enqueuer, maxRetries int, delay time.Duration) *RetryQueue {
	return &RetryQueue{client: client, maxRetries: maxRetries, delay: delay}
}

// Enqueue is a no-op when a retry for the same payment is already queued.
func (q *RetryQueue) Enqueue(ctx context.Context, ev payment.Event) error {
	task, err := NewReconcileTask(ev)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(q.maxRetries),
		asynq.ProcessIn(q.delay),
		asynq.TaskID(TypeReconcileRetry+":"+ev.ProviderPaymentID),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}

		return fmt.Errorf("enqueueing reconcile retry for %s: %w", ev.ProviderPaymentID, err)
	}

	slog.Info("reconcile retry scheduled", "provider_payment_id", ev.ProviderPaymentID, "task_id", info.ID, "in", q.delay)

	return nil
}

type Processor struct {
	reconciler Reconciler
	sweeper    Sweeper
	logger     *slog.Logger
}

func NewProcessor(reconciler Reconciler, sweeper Sweeper) *Processor {
	return &Processor{reconciler: reconciler, sweeper: sweeper, logger: slog.Default()}
}

func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReconcileRetry, p.HandleReconcileRetry)
	mux.HandleFunc(TypeLedgerSweep, p.HandleLedgerSweep)
}

// HandleReconcileRetry replays a webhook. Malformed or ignored events are not
// retried; everything else is left to asynq's retry policy.
func (p *Processor) HandleReconcileRetry(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding reconcile payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := p.reconciler.Reconcile(ctx, payment.Event{
		ProviderPaymentID: payload.ProviderPaymentID,
		RawPayload:        payload.RawPayload,
	})
	if err != nil {
		if errors.Is(err, payment.ErrMalformedEvent) || errors.Is(err, payment.ErrIgnoredEvent) {
			return fmt.Errorf("reconciling payment %s: %v: %w", payload.ProviderPaymentID, err, asynq.SkipRetry)
		}

		return fmt.Errorf("reconciling payment %s: %w", payload.ProviderPaymentID, err)
	}

	p.logger.Info("reconcile retry done",
		"provider_payment_id", payload.ProviderPaymentID,
		"outcome", res.Outcome,
		"strategy", res.Strategy,
	)

	return nil
}

func (p *Processor) HandleLedgerSweep(ctx context.Context, _ *asynq.Task) error {
	n, err := p.sweeper.SweepDue(ctx)
	if err != nil {
		return fmt.Errorf("sweeping due entries: %w", err)
	}

	p.logger.Info("ledger sweep done", "billed", n)

	return nil
}

func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			slog.Error("task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
		}),
	})
}

// NewScheduler registers the billing sweep on cronSpec.
func NewScheduler(opt asynq.RedisConnOpt, cronSpec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})

	if _, err := scheduler.Register(cronSpec, asynq.NewTask(TypeLedgerSweep, nil), asynq.Unique(time.Hour)); err != nil {
		return nil, fmt.Errorf("registering ledger sweep: %w", err)
	}

	return scheduler, nil
}
