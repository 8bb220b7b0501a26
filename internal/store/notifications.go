package store

import (
	"context"
	"database/sql"
	"time"

	"pharmacy-dashboard/models"
)

// NotificationStore caches backend notifications locally. The `forwarded`
// flag dedups Telegram forwarding across dashboard restarts.
type NotificationStore struct {
	db *sql.DB
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Upsert inserts a notification or refreshes its read flag if already cached.
// The forwarded flag is never reset by an upsert.
func (s *NotificationStore) Upsert(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications (id, title, message, read, created_at)
        VALUES (?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET read = excluded.read`,
		n.ID, n.Title, n.Message, boolToInt(n.Read), n.CreatedAt)
	return err
}

// UnreadCount returns the number of cached unread notifications.
func (s *NotificationStore) UnreadCount(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&n)
	return n, err
}

// MarkAllRead flags every cached notification as read.
func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1`)
	return err
}

// ListUnforwarded returns notifications not yet forwarded, oldest first.
func (s *NotificationStore) ListUnforwarded(ctx context.Context) ([]*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, message, read, created_at FROM notifications WHERE forwarded = 0 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var read int
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Read = read != 0
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkForwarded flags a notification as forwarded.
func (s *NotificationStore) MarkForwarded(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET forwarded = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
