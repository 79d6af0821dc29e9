package types

import "time"

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationLineManagerAdded NotificationType = "line_manager_added"
	NotificationCreditsGranted   NotificationType = "credits_granted"
)

// Notification is a message for one recipient. Only Read/ReadAt ever change, and only
// from unread to read.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Metadata    map[string]any   `json:"metadata"`
	Read        bool             `json:"read"`
	ReadAt      *time.Time       `json:"readAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	Route       string           `json:"route,omitempty"`
}

// NotificationPage is one page of a recipient's notifications.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
	Total         int            `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
}
