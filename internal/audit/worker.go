package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Worker drains the audit outbox to Kafka. Rows are claimed with
// FOR UPDATE SKIP LOCKED so multiple replicas can run the worker without
// double-publishing, and marked published only after Kafka acknowledges.
type Worker struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// WorkerOption configures the outbox worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides the outbox poll interval.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize overrides how many rows are claimed per poll.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// NewWorker creates an outbox worker publishing to the given topic.
func NewWorker(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		db:       db,
		client:   client,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (w *Worker) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(w.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicas, nil, w.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", w.topic, resp.Err)
	}
	return nil
}

// Run polls the outbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

// drainOnce claims one batch of unpublished rows and publishes them.
func (w *Worker) drainOnce(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, w.batch)
	if err != nil {
		return fmt.Errorf("claim outbox rows: %w", err)
	}

	type pending struct {
		id      string
		payload []byte
	}
	var claimed []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		claimed = append(claimed, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(claimed))
	for _, p := range claimed {
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(p.id),
			Value: p.payload,
		})
	}
	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}

	ids := make([]any, 0, len(claimed))
	placeholders := ""
	for i, p := range claimed {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+2)
		ids = append(ids, p.id)
	}
	args := append([]any{time.Now()}, ids...)
	if _, err := tx.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $1 WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	w.logger.DebugContext(ctx, "published audit events", "count", len(claimed))
	return nil
}
