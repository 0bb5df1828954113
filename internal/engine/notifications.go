package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"colonyserver/internal/eventlog"
)

// Notification is one user's view of a fanned-out event.
type Notification struct {
	ID    string         `json:"id"`
	Read  bool           `json:"read"`
	Event eventlog.Event `json:"event"`
}

// eventFetchChunk bounds the id list per batch query; chunks are fetched
// concurrently.
const eventFetchChunk = 100

// UserNotifications lists the user's notifications newest first, each
// hydrated with its underlying event. A notification whose event row is
// missing means the log and the fan-out disagree, which is corruption.
func (e Engine) UserNotifications(ctx context.Context, address string, read *bool) ([]Notification, error) {
	rows, err := e.Repo.UserNotifications(ctx, address, read)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Notification{}, nil
	}
	ids := make([]string, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		if !seen[row.EventID] {
			seen[row.EventID] = true
			ids = append(ids, row.EventID)
		}
	}
	events, err := e.fetchEvents(ctx, ids)
	if err != nil {
		return nil, err
	}
	res := make([]Notification, 0, len(rows))
	for _, row := range rows {
		ev, ok := events[row.EventID]
		if !ok {
			return nil, dataIntegrity(fmt.Errorf("notification %q references missing event %q", row.ID, row.EventID))
		}
		res = append(res, Notification{ID: row.ID, Read: row.Read, Event: ev})
	}
	return res, nil
}

func (e Engine) fetchEvents(ctx context.Context, ids []string) (map[string]eventlog.Event, error) {
	if len(ids) <= eventFetchChunk {
		return e.Repo.GetEventsByID(ctx, ids)
	}
	var mu sync.Mutex
	merged := make(map[string]eventlog.Event, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(ids); start += eventFetchChunk {
		chunk := ids[start:min(start+eventFetchChunk, len(ids))]
		g.Go(func() error {
			events, err := e.Repo.GetEventsByID(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, ev := range events {
				merged[id] = ev
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// MarkNotificationRead marks one notification read for the user. Marking
// an already-read notification again succeeds.
func (e Engine) MarkNotificationRead(ctx context.Context, id, address string) error {
	return e.Repo.MarkNotificationRead(ctx, id, address)
}

// MarkAllNotificationsRead clears the user's unread set.
func (e Engine) MarkAllNotificationsRead(ctx context.Context, address string) error {
	return e.Repo.MarkAllNotificationsRead(ctx, address)
}
