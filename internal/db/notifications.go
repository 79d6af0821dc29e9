package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veridate/veridate/internal/types"
)

const notificationColumns = `id, recipient_id, type, message, metadata, read, read_at, created_at`

// InsertNotification stores a new unread notification.
func (db *DB) InsertNotification(ctx context.Context, n *types.Notification) error {
	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO notifications (id, recipient_id, type, message, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.RecipientID, string(n.Type), n.Message, raw, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns one page of the recipient's notifications, newest first, with
// the recipient's total and unread counts.
func (db *DB) ListNotifications(ctx context.Context, recipientID string, offset, limit int) (*types.NotificationPage, error) {
	page := &types.NotificationPage{Notifications: []types.Notification{}}
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT read)
		 FROM notifications WHERE recipient_id = $1`,
		recipientID,
	).Scan(&page.Total, &page.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		recipientID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		page.Notifications = append(page.Notifications, n)
	}
	return page, rows.Err()
}

// GetNotification returns the notification with id, or nil, nil.
func (db *DB) GetNotification(ctx context.Context, id string) (*types.Notification, error) {
	n, err := scanNotification(db.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// MarkNotificationRead flips the notification to read. The first read time is kept on
// repeated calls.
func (db *DB) MarkNotificationRead(ctx context.Context, recipientID, id string) (*types.Notification, error) {
	n, err := scanNotification(db.pool.QueryRow(ctx,
		`UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, NOW())
		 WHERE id = $1 AND recipient_id = $2
		 RETURNING `+notificationColumns,
		id, recipientID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrNotFound{Resource: "notification", ID: id}
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}

// MarkAllNotificationsRead marks every unread notification of the recipient read and
// returns how many changed.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = NOW()
		 WHERE recipient_id = $1 AND NOT read`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (types.Notification, error) {
	var (
		n        types.Notification
		typ      string
		metadata []byte
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &typ, &n.Message, &metadata, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
		return n, err
	}
	n.Type = types.NotificationType(typ)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return n, fmt.Errorf("failed to decode notification metadata: %w", err)
		}
	}
	return n, nil
}
