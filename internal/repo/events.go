package repo

import (
	"context"
	"database/sql"
	"fmt"

	"colonyserver/internal/eventlog"
)

const eventColumns = `id,type,initiator_address,source_id,source_type,context_json`

func scanEvent(scan func(dest ...any) error) (eventlog.Event, error) {
	var e eventlog.Event
	var typ, raw string
	if err := scan(&e.ID, &typ, &e.InitiatorAddress, &e.SourceID, &e.SourceType, &raw); err != nil {
		return e, err
	}
	e.Type = eventlog.EventType(typ)
	c, err := eventlog.DecodeContext(e.Type, []byte(raw))
	if err != nil {
		return e, fmt.Errorf("event %s: %w: %v", e.ID, ErrDataIntegrity, err)
	}
	e.Context = c
	created, err := eventlog.IDTime(e.ID)
	if err != nil {
		return e, fmt.Errorf("event %s: %w: %v", e.ID, ErrDataIntegrity, err)
	}
	e.CreatedAt = created.Format("2006-01-02T15:04:05Z07:00")
	return e, nil
}

func (r Repo) queryEvents(ctx context.Context, q string, args ...any) ([]eventlog.Event, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []eventlog.Event{}
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) GetEventByID(ctx context.Context, id string) (eventlog.Event, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=?`, id)
	e, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return e, notFound("event", id)
	}
	return e, err
}

// GetEventsByID batch-fetches events in one query. Missing ids are simply
// absent from the result; callers that treat absence as corruption check
// the returned map.
func (r Repo) GetEventsByID(ctx context.Context, ids []string) (map[string]eventlog.Event, error) {
	if len(ids) == 0 {
		return map[string]eventlog.Event{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	events, err := r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]eventlog.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	return byID, nil
}

// TaskEvents returns the task's history oldest first. Task membership lives
// inside the context payload, so the lookup goes through the expression
// index on taskId.
func (r Repo) TaskEvents(ctx context.Context, taskID string) ([]eventlog.Event, error) {
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE json_extract(context_json,'$.taskId')=? ORDER BY id ASC`, taskID)
}

// SourceEvents returns everything appended by one source, oldest first.
func (r Repo) SourceEvents(ctx context.Context, sourceID string) ([]eventlog.Event, error) {
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE source_id=? ORDER BY id ASC`, sourceID)
}

// LatestEvents returns the newest events, optionally filtered by type and
// source. Used by the log tail command.
func (r Repo) LatestEvents(ctx context.Context, limit int, eventType, sourceID string) ([]eventlog.Event, error) {
	clauses := []string{}
	args := []any{}
	if eventType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, eventType)
	}
	if sourceID != "" {
		clauses = append(clauses, "source_id=?")
		args = append(args, sourceID)
	}
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events `+whereClause(clauses)+` ORDER BY id DESC LIMIT ?`, args...)
}

// ColonyEvents returns colony-scoped events, oldest first. A colony's feed
// is the union of events sourced by the colony and events whose context
// names its address.
func (r Repo) ColonyEvents(ctx context.Context, colonyAddress string) ([]eventlog.Event, error) {
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		WHERE source_id=? OR json_extract(context_json,'$.colonyAddress')=?
		ORDER BY id ASC`, colonyAddress, colonyAddress)
}
