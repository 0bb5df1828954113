package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotRecipient marks a mutation attempted against a notification the
// caller was never addressed by.
var ErrNotRecipient = errors.New("not a recipient")

// NotificationRow is the storage view of one user's slice of a fan-out
// notification, before the underlying event is attached.
type NotificationRow struct {
	ID      string
	EventID string
	Read    bool
}

// UserNotifications lists the user's notification rows, newest first.
// The read filter is only applied when set; ids are time-ordered so the
// id sort doubles as a recency sort.
func (r Repo) UserNotifications(ctx context.Context, address string, read *bool) ([]NotificationRow, error) {
	clauses := []string{"nr.address=?"}
	args := []any{address}
	if read != nil {
		clauses = append(clauses, "COALESCE(nr.read,0)=?")
		args = append(args, boolInt(*read))
	}
	q := `SELECT n.id, n.event_id, COALESCE(nr.read,0)
		FROM notification_recipients nr
		JOIN notifications n ON n.id = nr.notification_id
		` + whereClause(clauses) + `
		ORDER BY n.id DESC`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []NotificationRow{}
	for rows.Next() {
		var row NotificationRow
		var read int
		if err := rows.Scan(&row.ID, &row.EventID, &read); err != nil {
			return nil, err
		}
		row.Read = read != 0
		res = append(res, row)
	}
	return res, rows.Err()
}

// MarkNotificationRead flips the recipient row to read. Zero rows updated
// means either the notification does not exist or the user is not among
// its recipients; the two are reported distinctly.
func (r Repo) MarkNotificationRead(ctx context.Context, id, address string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE notification_recipients SET read=1 WHERE notification_id=? AND address=?`, id, address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM notifications WHERE id=?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return notFound("notification", id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("notification %q: %w", id, ErrNotRecipient)
}

// MarkAllNotificationsRead marks every unread row for the user. Marking
// an already-empty inbox is a no-op, not an error.
func (r Repo) MarkAllNotificationsRead(ctx context.Context, address string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE notification_recipients SET read=1 WHERE address=? AND COALESCE(read,0)=0`, address)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
