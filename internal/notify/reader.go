package notify

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/types"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Reader serves a recipient's notifications and tracks read state.
type Reader struct {
	store Store
}

// NewReader creates a Reader.
func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

// List returns one page, newest first. limit is capped at MaxLimit.
func (r *Reader) List(ctx context.Context, recipientID string, page, limit int) (*types.NotificationPage, error) {
	if page < 1 {
		return nil, &types.ErrValidation{Field: "page", Message: "must be a positive integer"}
	}
	if limit < 1 {
		return nil, &types.ErrValidation{Field: "limit", Message: "must be a positive integer"}
	}
	limit = min(limit, MaxLimit)

	// A page past the addressable range is empty; the offset must not wrap.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	out, err := r.store.ListNotifications(ctx, recipientID, offset, limit)
	if err != nil {
		return nil, transient("list notifications", err)
	}
	out.Page = page
	out.Limit = limit
	for i := range out.Notifications {
		out.Notifications[i].Route = ResolveRoute(out.Notifications[i])
	}
	return out, nil
}

// MarkRead marks one notification read. Marking an already-read notification is a no-op.
func (r *Reader) MarkRead(ctx context.Context, recipientID, id string) (*types.Notification, error) {
	if !ids.Valid(id) {
		return nil, &types.ErrInvalidIdentifier{Field: "notification id", Value: id}
	}
	id = strings.ToLower(id)

	existing, err := r.store.GetNotification(ctx, id)
	if err != nil {
		return nil, transient("get notification", err)
	}
	if existing == nil {
		return nil, &types.ErrNotFound{Resource: "notification", ID: id}
	}
	if existing.RecipientID != recipientID {
		return nil, &types.ErrForbidden{Resource: "notification"}
	}

	n, err := r.store.MarkNotificationRead(ctx, recipientID, id)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, err
		}
		return nil, transient("mark notification read", err)
	}
	n.Route = ResolveRoute(*n)
	return n, nil
}

// MarkAllRead marks every unread notification of the recipient read and returns how many
// changed.
func (r *Reader) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n, err := r.store.MarkAllNotificationsRead(ctx, recipientID)
	if err != nil {
		return 0, transient("mark all notifications read", err)
	}
	return n, nil
}

func transient(op string, err error) error {
	var ts *types.ErrTransientStore
	if errors.As(err, &ts) {
		return err
	}
	return &types.ErrTransientStore{Op: op, Cause: err}
}
