package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Writer appends events and their notification fan-out. This is the single
// write path into the log; the chain listener and the seed command both go
// through it. Events are never updated or deleted once written.
type Writer struct {
	DB *sql.DB
}

// Append writes one event record and, when recipients are given, one
// notification aggregate with a per-address recipient list. Duplicate
// recipient addresses collapse to a single entry.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, initiatorAddress, sourceID, sourceType string, c Context, recipients []string) (Event, error) {
	id, err := NewID()
	if err != nil {
		return Event{}, err
	}
	payload, err := EncodeContext(c)
	if err != nil {
		return Event{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(id,type,initiator_address,source_id,source_type,context_json) VALUES (?,?,?,?,?,?)`,
		id, string(c.EventType()), initiatorAddress, sourceID, sourceType, string(payload)); err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	if len(recipients) > 0 {
		nid, err := NewID()
		if err != nil {
			return Event{}, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO notifications(id,event_id) VALUES (?,?)`, nid, id); err != nil {
			return Event{}, fmt.Errorf("insert notification: %w", err)
		}
		seen := map[string]bool{}
		for _, addr := range recipients {
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			if _, err := tx.ExecContext(ctx, `INSERT INTO notification_recipients(notification_id,address,read) VALUES (?,?,0)`, nid, addr); err != nil {
				return Event{}, fmt.Errorf("insert notification recipient: %w", err)
			}
		}
	}
	created, err := IDTime(id)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:               id,
		Type:             c.EventType(),
		CreatedAt:        created.Format(time.RFC3339),
		InitiatorAddress: initiatorAddress,
		SourceID:         sourceID,
		SourceType:       sourceType,
		Context:          stampValueType(c),
	}, nil
}
