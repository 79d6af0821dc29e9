package notify

import (
	"fmt"

	"github.com/veridate/veridate/internal/types"
)

// ResolveRoute maps a notification to the client route it should open. Unknown types, or
// metadata missing the keys a route needs, resolve to "" (no navigation).
func ResolveRoute(n types.Notification) string {
	switch n.Type {
	case types.NotificationLineManagerAdded:
		profileID, ok1 := n.Metadata["profileUserId"].(string)
		expID, ok2 := n.Metadata["experienceId"].(string)
		if !ok1 || !ok2 || profileID == "" || expID == "" {
			return ""
		}
		return fmt.Sprintf("/profiles/%s#experience-%s", profileID, expID)
	case types.NotificationCreditsGranted:
		return "/verify/credits"
	default:
		return ""
	}
}
