package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veridate/veridate/internal/types"
)

func TestResolveRoute(t *testing.T) {
	tests := []struct {
		name string
		n    types.Notification
		want string
	}{
		{
			name: "line manager added",
			n: types.Notification{
				Type:     types.NotificationLineManagerAdded,
				Metadata: map[string]any{"profileUserId": "u1", "experienceId": "e1"},
			},
			want: "/profiles/u1#experience-e1",
		},
		{
			name: "line manager added without experience",
			n: types.Notification{
				Type:     types.NotificationLineManagerAdded,
				Metadata: map[string]any{"profileUserId": "u1"},
			},
			want: "",
		},
		{
			name: "credits granted",
			n:    types.Notification{Type: types.NotificationCreditsGranted},
			want: "/verify/credits",
		},
		{
			name: "unknown type",
			n:    types.Notification{Type: "system_notice"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRoute(tt.n))
		})
	}
}
