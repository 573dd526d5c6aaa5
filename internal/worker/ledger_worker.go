package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/models"
	"duetmenu/internal/sheets"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskAppend = "append"
	TaskDelete = "delete"
)

// LedgerTask is a unit of ledger sync work. Append tasks resolve the order
// record from history at processing time so the row reflects what was stored.
type LedgerTask struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// LedgerClient applies ledger rows to the shared spreadsheet.
type LedgerClient interface {
	AppendOrder(ctx context.Context, record *models.OrderRecord) error
	DeleteOrderRow(ctx context.Context, orderID string) error
	ReplaceLedger(ctx context.Context, records []models.OrderRecord) error
}

// LedgerWorker drains submitted and deleted orders into the household ledger.
// Tasks go through redis when available so a restart does not lose them;
// otherwise an in-memory queue carries them for the life of the process.
type LedgerWorker struct {
	client        LedgerClient
	history       domain.HistoryService
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan LedgerTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
}

func NewLedgerWorker(
	client LedgerClient,
	history domain.HistoryService,
	redisClient *redis.Client,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *LedgerWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &LedgerWorker{
		client:        client,
		history:       history,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan LedgerTask, 128),
		redisQueueKey: "kiosk:ledger:queue",
		deadLetterKey: "kiosk:ledger:deadletter",
		pollInterval:  2 * time.Second,
		logger:        logger,
	}
}

// BindEvents subscribes the worker to the order lifecycle events it mirrors.
func (w *LedgerWorker) BindEvents(bus *events.EventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(events.EventOrderSubmitted, func(event *events.Event) error {
		var payload events.OrderEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		return w.Enqueue(context.Background(), LedgerTask{Type: TaskAppend, OrderID: payload.OrderID})
	})
	bus.Subscribe(events.EventOrderDeleted, func(event *events.Event) error {
		var payload events.OrderEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		return w.Enqueue(context.Background(), LedgerTask{Type: TaskDelete, OrderID: payload.OrderID})
	})
}

// Reconcile rewrites the ledger sheet from the stored history, newest first.
// Run once at startup so rows missed while the kiosk was offline catch up.
func (w *LedgerWorker) Reconcile(ctx context.Context) error {
	records := w.history.List(ctx)
	if err := w.client.ReplaceLedger(ctx, records); err != nil {
		return fmt.Errorf("reconcile ledger: %w", err)
	}
	w.logger.Info().Int("orders", len(records)).Msg("ledger reconciled with history")
	return nil
}

// Enqueue schedules a task via redis or the in-memory queue.
func (w *LedgerWorker) Enqueue(ctx context.Context, task LedgerTask) error {
	if task.Type == "" {
		return errors.New("task type is required")
	}
	if task.OrderID == "" {
		return errors.New("order id is required")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("ledger worker: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Str("order_id", task.OrderID).Msg("ledger worker: in-memory queue full, task dropped")
	}
	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("ledger worker started")
	defer w.logger.Info().Msg("ledger worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *LedgerWorker) tryLocalQueue() (LedgerTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return LedgerTask{}, false
	}
}

func (w *LedgerWorker) tryRedis(ctx context.Context) (LedgerTask, bool) {
	if w.redis == nil {
		return LedgerTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return LedgerTask{}, false
		}
		w.logger.Error().Err(err).Msg("ledger worker: redis BRPOP error")
		return LedgerTask{}, false
	}
	if len(res) != 2 {
		return LedgerTask{}, false
	}
	var task LedgerTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("ledger worker: decode redis task")
		return LedgerTask{}, false
	}
	return task, true
}

func (w *LedgerWorker) processTask(ctx context.Context, task LedgerTask) {
	if err := w.handleTask(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Debug().Str("type", task.Type).Str("order_id", task.OrderID).Msg("ledger task completed")
}

func (w *LedgerWorker) handleTask(ctx context.Context, task LedgerTask) error {
	switch task.Type {
	case TaskAppend:
		record := w.findRecord(ctx, task.OrderID)
		if record == nil {
			// Order was deleted before the ledger caught up. Nothing to mirror.
			return nil
		}
		return w.client.AppendOrder(ctx, record)
	case TaskDelete:
		err := w.client.DeleteOrderRow(ctx, task.OrderID)
		if errors.Is(err, sheets.ErrRowNotFound) {
			// Row never made it to the ledger. Nothing to remove.
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *LedgerWorker) findRecord(ctx context.Context, orderID string) *models.OrderRecord {
	for _, record := range w.history.List(ctx) {
		if record.ID == orderID {
			r := record
			return &r
		}
	}
	return nil
}

func (w *LedgerWorker) retryOrFail(ctx context.Context, task LedgerTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).Str("order_id", task.OrderID).Int("attempts", attempt).
			Msg("ledger task failed permanently")
		w.pushDeadLetter(ctx, task)
		return
	}

	task.RetryCount = attempt
	delay := w.retryPolicy.NextDelay(attempt)
	w.logger.Warn().Err(cause).Str("order_id", task.OrderID).Dur("next_delay", delay).
		Msg("ledger task failed, scheduling retry")

	time.AfterFunc(delay, func() {
		select {
		case w.queue <- task:
		default:
			w.logger.Warn().Str("order_id", task.OrderID).Msg("ledger worker: retry queue full, task dropped")
		}
	})
}

func (w *LedgerWorker) pushRedis(ctx context.Context, task LedgerTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *LedgerWorker) pushDeadLetter(ctx context.Context, task LedgerTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("ledger worker: encode deadletter task")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("ledger worker: deadletter push failed")
	}
}
