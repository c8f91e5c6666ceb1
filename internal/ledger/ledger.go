// Package ledger provides an append-only audit history of accessory events.
// Entries are never read back into light state.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID             int64
	EventType      eventbus.EventType
	Timestamp      time.Time
	Seq            uint64
	Source         string
	CorrelationID  string
	Characteristic string
	Payload        map[string]any
}

// Ledger provides append-only event logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Subscribe records every accessory event published on bus.
func (l *Ledger) Subscribe(bus *eventbus.Bus) {
	handler := func(e eventbus.Event) {
		if err := l.Record(e); err != nil {
			log.Error().
				Err(err).
				Str("event_type", string(e.Type)).
				Str("correlation_id", e.CorrelationID).
				Msg("Failed to record ledger entry")
		}
	}
	bus.Subscribe(eventbus.EventTypeWriteApplied, handler)
	bus.Subscribe(eventbus.EventTypeWriteRejected, handler)
	bus.Subscribe(eventbus.EventTypeIdentify, handler)
}

// Record appends an event to the ledger
func (l *Ledger) Record(e eventbus.Event) error {
	payload := map[string]any{
		"state": e.State,
	}
	if e.Characteristic != "" {
		payload["value"] = e.Value.Interface()
	}
	if len(e.Commands) > 0 {
		payload["commands"] = reconcile.Strings(e.Commands)
	}
	if e.Err != nil {
		payload["error"] = e.Err.Error()
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return l.Append(e.Type, ts, e.Seq, e.Source, e.CorrelationID, e.Characteristic, payload)
}

// Append adds a new entry to the ledger
func (l *Ledger) Append(eventType eventbus.EventType, ts time.Time, seq uint64, source, correlationID, characteristic string, payload map[string]any) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err = l.db.Exec(`
		INSERT INTO event_ledger (event_type, timestamp, seq, source, correlation_id, characteristic, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(eventType), ts.UTC().UnixMilli(), int64(seq), source, correlationID, characteristic, string(payloadJSON))

	return err
}

// GetByType returns the newest entries of one event type
func (l *Ledger) GetByType(eventType eventbus.EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, seq, source, correlation_id, characteristic, payload
		FROM event_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByCorrelation returns all entries sharing a correlation id, oldest first
func (l *Ledger) GetByCorrelation(correlationID string) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, seq, source, correlation_id, characteristic, payload
		FROM event_ledger
		WHERE correlation_id = ?
		ORDER BY id ASC
	`, correlationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByTimeRange returns entries within a time range
func (l *Ledger) GetByTimeRange(start, end time.Time, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, seq, source, correlation_id, characteristic, payload
		FROM event_ledger
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, start.UTC().UnixMilli(), end.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`
		DELETE FROM event_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RunCleanup deletes expired entries every interval until ctx is cancelled.
func (l *Ledger) RunCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Dur("retention", retention).Msg("Ledger cleanup")
			}
		}
	}
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr sql.NullString
		var source, correlationID, characteristic sql.NullString
		var timestamp, seq int64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &timestamp, &seq, &source, &correlationID, &characteristic, &payloadStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entry.Seq = uint64(seq)
		if source.Valid {
			entry.Source = source.String
		}
		if correlationID.Valid {
			entry.CorrelationID = correlationID.String
		}
		if characteristic.Valid {
			entry.Characteristic = characteristic.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
