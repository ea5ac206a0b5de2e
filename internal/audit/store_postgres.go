package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "vouchsafe/pkg/domain"
	txcontext "vouchsafe/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table in the caller's transaction and
// published to Kafka by the outbox worker; Kafka is the downstream source of
// truth for the compliance archive.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL audit store that writes to the outbox.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// Event so the compliance consumer can deserialize without a schema registry.
type outboxPayload struct {
	ID            string         `json:"ID"`
	Category      string         `json:"Category"`
	Timestamp     string         `json:"Timestamp"`
	ApplicationID string         `json:"ApplicationID,omitempty"`
	ActorID       string         `json:"ActorID,omitempty"`
	Action        string         `json:"Action"`
	CorrelationID string         `json:"CorrelationID,omitempty"`
	RequestID     string         `json:"RequestID,omitempty"`
	Metadata      map[string]any `json:"Metadata,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()

	// Category always derives from action; the eventCategories map is the
	// source of truth.
	category := AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        event.Action,
		CorrelationID: event.CorrelationID,
		RequestID:     event.RequestID,
		Metadata:      event.Metadata,
	}
	if !event.ApplicationID.IsNil() {
		payload.ApplicationID = event.ApplicationID.String()
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	var appID uuid.NullUUID
	if !event.ApplicationID.IsNil() {
		appID = uuid.NullUUID{UUID: uuid.UUID(event.ApplicationID), Valid: true}
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, application_id, category, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		eventID, appID, string(category), event.Action, body, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit outbox: %w", err)
	}
	return nil
}

// ListByApplication reads back events from the outbox. Intended for admin
// trail views and tests; the compliance archive lives in Kafka.
func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT payload FROM audit_outbox
		WHERE application_id = $1 ORDER BY created_at`,
		uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var payload outboxPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		event := Event{
			Action:        payload.Action,
			CorrelationID: payload.CorrelationID,
			RequestID:     payload.RequestID,
			Metadata:      payload.Metadata,
		}
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			event.Timestamp = ts
		}
		if payload.ApplicationID != "" {
			if parsed, err := id.ParseApplicationID(payload.ApplicationID); err == nil {
				event.ApplicationID = parsed
			}
		}
		if payload.ActorID != "" {
			if parsed, err := id.ParseUserID(payload.ActorID); err == nil {
				event.ActorID = parsed
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
