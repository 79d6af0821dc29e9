package memstore

import (
	"context"
	"maps"

	"github.com/veridate/veridate/internal/types"
)

// InsertNotification stores a new unread notification.
func (s *Store) InsertNotification(_ context.Context, n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	stored.Metadata = maps.Clone(n.Metadata)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
		n.CreatedAt = stored.CreatedAt
	}
	s.notifications[n.ID] = &stored
	s.notifOrder = append(s.notifOrder, n.ID)
	return nil
}

// ListNotifications returns the recipient's notifications newest first.
func (s *Store) ListNotifications(_ context.Context, recipientID string, offset, limit int) (*types.NotificationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := &types.NotificationPage{Notifications: []types.Notification{}}
	for i := len(s.notifOrder) - 1; i >= 0; i-- {
		n := s.notifications[s.notifOrder[i]]
		if n.RecipientID != recipientID {
			continue
		}
		if !n.Read {
			page.UnreadCount++
		}
		if page.Total >= offset && len(page.Notifications) < limit {
			page.Notifications = append(page.Notifications, copyNotification(n))
		}
		page.Total++
	}
	return page, nil
}

// GetNotification returns the notification with id, or nil.
func (s *Store) GetNotification(_ context.Context, id string) (*types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, nil
	}
	out := copyNotification(n)
	return &out, nil
}

// MarkNotificationRead flips an unread notification to read. Already-read notifications are
// returned unchanged.
func (s *Store) MarkNotificationRead(_ context.Context, recipientID, id string) (*types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, &types.ErrNotFound{Resource: "notification", ID: id}
	}
	if !n.Read {
		now := s.now().UTC()
		n.Read = true
		n.ReadAt = &now
	}
	out := copyNotification(n)
	return &out, nil
}

// MarkAllNotificationsRead marks every unread notification of the recipient read and
// returns how many changed.
func (s *Store) MarkAllNotificationsRead(_ context.Context, recipientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var changed int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			n.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

func copyNotification(n *types.Notification) types.Notification {
	out := *n
	out.Metadata = maps.Clone(n.Metadata)
	if n.ReadAt != nil {
		t := *n.ReadAt
		out.ReadAt = &t
	}
	return out
}
