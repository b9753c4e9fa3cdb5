package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const insertEventSQL = `
INSERT INTO audit.events (
    actor_id, resource_type, resource_id,
    event_type, status, error_message, before, after,
    request_id, idempotency_key, occurred_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11)
ON CONFLICT (idempotency_key) DO NOTHING`

const recordTimeout = 5 * time.Second

// postgresRecorder writes audit events to a Postgres table. Writes run
// on their own goroutine with their own timeout so a slow audit store
// cannot stall a request.
type postgresRecorder struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgresRecorder connects to the audit database. The DSN is a
// standard lib/pq connection string.
func NewPostgresRecorder(dsn string, logger zerolog.Logger) (Recorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &postgresRecorder{db: db, logger: logger}, nil
}

// Record inserts the event asynchronously. Duplicate idempotency keys
// are dropped by the ON CONFLICT clause; insert failures are logged
// and swallowed.
func (r *postgresRecorder) Record(ctx context.Context, event Event) {
	if event.IdempotencyKey == "" {
		event.IdempotencyKey = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	go func() {
		insertCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		before := marshalSnapshot(event.Before)
		after := marshalSnapshot(event.After)

		_, err := r.db.ExecContext(insertCtx, insertEventSQL,
			event.ActorID,
			event.ResourceType,
			event.ResourceID,
			event.Action,
			event.Status,
			nullString(event.ErrorMessage),
			before,
			after,
			nullString(event.RequestID),
			event.IdempotencyKey,
			event.OccurredAt,
		)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("action", event.Action).
				Str("resource", event.ResourceType+"/"+event.ResourceID).
				Msg("audit event dropped")
		}
	}()
}

func marshalSnapshot(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
