package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DBRecorder persists audit events in the auth_audit table.
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder creates a database-backed recorder.
func NewDBRecorder(db *sql.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

// Record inserts one row. Metadata is stored as JSONB.
func (r *DBRecorder) Record(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	var metadata []byte
	if len(event.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("audit: marshal metadata: %w", err)
		}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO auth_audit (timestamp, event_type, status, actor_id, actor_email, subject_id, request_id, ip_address, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, event.Timestamp, string(event.Type), string(event.Status),
		nullable(event.ActorID), nullable(event.ActorEmail), nullable(event.SubjectID),
		nullable(event.RequestID), nullable(event.IPAddress), event.Message, metadata,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// List returns the most recent events, newest first.
func (r *DBRecorder) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, status,
		       COALESCE(actor_id, ''), COALESCE(actor_email, ''), COALESCE(subject_id, ''),
		       COALESCE(request_id, ''), COALESCE(ip_address, ''), message, metadata
		FROM auth_audit
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event     Event
			eventType string
			status    string
			metadata  []byte
		)
		err := rows.Scan(
			&event.ID, &event.Timestamp, &eventType, &status,
			&event.ActorID, &event.ActorEmail, &event.SubjectID,
			&event.RequestID, &event.IPAddress, &event.Message, &metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		event.Type = EventType(eventType)
		event.Status = EventStatus(status)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("audit: corrupt metadata for %d: %w", event.ID, err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close is a no-op; the database handle is owned by the caller.
func (r *DBRecorder) Close() error { return nil }

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
