package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/veridate/veridate/internal/notify"
	"github.com/veridate/veridate/internal/types"
)

// handleListNotifications serves GET /notifications?page=&limit=. Missing parameters default
// to page 1 and notify.DefaultLimit.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", notify.DefaultLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.reader.List(r.Context(), callerID, page, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleMarkNotificationRead serves PATCH /notifications/{id}/read.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	n, err := s.reader.MarkRead(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, n)
}

// handleMarkAllNotificationsRead serves PATCH /notifications/read-all.
func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	count, err := s.reader.MarkAllRead(r.Context(), callerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "all notifications marked as read",
		"count":   count,
	})
}

// handleStreamNotifications pushes the caller's new notifications as server-sent events
// until the client disconnects or the server shuts down.
func (s *Server) handleStreamNotifications(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	events, unsubscribe := s.hub.Subscribe(callerID)
	defer unsubscribe()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Debug("notification stream opened", "user_id", callerID, "request_id", requestIDFrom(r.Context()))
	defer s.log.Debug("notification stream closed", "user_id", callerID)

	keepAlive := time.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case <-keepAlive.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		case n, open := <-events:
			if !open {
				return
			}
			if n.Route == "" {
				n.Route = notify.ResolveRoute(n)
			}
			if err := sse.WriteEvent("notification", n.ID, n); err != nil {
				return
			}
		}
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &types.ErrValidation{Field: name, Message: "must be a positive integer"}
	}
	return n, nil
}
