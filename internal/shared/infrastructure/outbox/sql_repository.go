package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/database"
)

// SQLRepository implements Repository against the shared database.Connection
// abstraction, so the same code serves PostgreSQL and SQLite alike.
type SQLRepository struct {
	conn database.Connection
}

// NewSQLRepository builds a Repository over an already-opened connection.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

// Schema is the DDL for the outbox_messages table.
const Schema = `
CREATE TABLE IF NOT EXISTS outbox_messages (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id            TEXT NOT NULL,
	aggregate_type      TEXT NOT NULL,
	aggregate_id        TEXT NOT NULL,
	event_type          TEXT NOT NULL,
	routing_key         TEXT NOT NULL,
	payload             TEXT NOT NULL,
	metadata            TEXT,
	created_at          TIMESTAMP NOT NULL,
	published_at        TIMESTAMP,
	next_retry_at       TIMESTAMP,
	retry_count         INTEGER NOT NULL DEFAULT 0,
	last_error          TEXT,
	dead_lettered_at    TIMESTAMP,
	dead_letter_reason  TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox_messages (created_at) WHERE published_at IS NULL;
`

func (r *SQLRepository) Save(ctx context.Context, msg *Message) error {
	return r.insert(ctx, database.ExecutorFromContext(ctx, r.conn), msg)
}

func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, msg := range msgs {
		if err := r.insert(ctx, tx, msg); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *SQLRepository) insert(ctx context.Context, exec database.Executor, msg *Message) error {
	result, err := exec.Exec(ctx, `
		INSERT INTO outbox_messages
			(event_id, aggregate_type, aggregate_id, event_type, routing_key, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		msg.EventID.String(), msg.AggregateType, msg.AggregateID.String(), msg.EventType,
		msg.RoutingKey, string(msg.Payload), nullableString(msg.Metadata), msg.CreatedAt,
	)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil && id != 0 {
		msg.ID = id
	}
	return nil
}

func (r *SQLRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key, payload, metadata,
		       created_at, retry_count, last_error
		FROM outbox_messages
		WHERE published_at IS NULL AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY created_at ASC
		LIMIT $2
	`, time.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *SQLRepository) GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key, payload, metadata,
		       created_at, retry_count, last_error
		FROM outbox_messages
		WHERE published_at IS NULL AND dead_lettered_at IS NULL AND retry_count > 0 AND retry_count < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE outbox_messages SET published_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := r.conn.Exec(ctx, `
		UPDATE outbox_messages
		SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2
		WHERE id = $3
	`, errMsg, nextRetryAt, id)
	return err
}

func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	_, err := r.conn.Exec(ctx, `
		UPDATE outbox_messages SET dead_lettered_at = $1, dead_letter_reason = $2 WHERE id = $3
	`, time.Now().UTC(), reason, id)
	return err
}

func (r *SQLRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	result, err := r.conn.Exec(ctx, `
		DELETE FROM outbox_messages WHERE published_at IS NOT NULL AND published_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanMessages(rows database.Rows) ([]*Message, error) {
	var msgs []*Message
	for rows.Next() {
		var (
			m            Message
			eventID      string
			aggregateID  string
			metadata     sql.NullString
			lastError    sql.NullString
		)
		if err := rows.Scan(&m.ID, &eventID, &m.AggregateType, &aggregateID, &m.EventType, &m.RoutingKey,
			&m.Payload, &metadata, &m.CreatedAt, &m.RetryCount, &lastError); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(eventID)
		if err != nil {
			return nil, err
		}
		m.EventID = id
		aggID, err := uuid.Parse(aggregateID)
		if err != nil {
			return nil, err
		}
		m.AggregateID = aggID
		if metadata.Valid {
			m.Metadata = json.RawMessage(metadata.String)
		}
		if lastError.Valid {
			s := lastError.String
			m.LastError = &s
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func nullableString(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var _ Repository = (*SQLRepository)(nil)
