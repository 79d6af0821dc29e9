package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/types"
)

func TestStore_Notifications(t *testing.T) {
	s := New()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()
	recipient := ids.New()

	meta := map[string]any{"company": "Acme"}
	n := &types.Notification{ID: ids.New(), RecipientID: recipient, Type: types.NotificationLineManagerAdded, Metadata: meta}
	require.NoError(t, s.InsertNotification(ctx, n))
	assert.Equal(t, fixed, n.CreatedAt, "zero CreatedAt is stamped")

	meta["company"] = "mutated"
	got, err := s.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Metadata["company"])

	missing, err := s.GetNotification(ctx, ids.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.MarkNotificationRead(ctx, ids.New(), n.ID)
	assert.True(t, types.IsNotFound(err), "other recipients cannot mark it")

	read, err := s.MarkNotificationRead(ctx, recipient, n.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.Equal(t, fixed, *read.ReadAt)

	page, err := s.ListNotifications(ctx, recipient, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 0, page.UnreadCount)
}

func TestStore_ListNotificationsOffset(t *testing.T) {
	s := New()
	ctx := context.Background()
	recipient := ids.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertNotification(ctx, &types.Notification{ID: ids.New(), RecipientID: recipient, Message: string(rune('a' + i))}))
	}

	page, err := s.ListNotifications(ctx, recipient, 3, 10)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "b", page.Notifications[0].Message)
	assert.Equal(t, "a", page.Notifications[1].Message)
	assert.Equal(t, 5, page.Total)

	empty, err := s.ListNotifications(ctx, ids.New(), 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Notifications)
	assert.Empty(t, empty.Notifications)
}
