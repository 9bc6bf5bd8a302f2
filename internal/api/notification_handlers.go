package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/notification"
)

// InboxService is the slice of the notification service the HTTP layer uses.
type InboxService interface {
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*notification.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]notification.Notification, error)
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan notification.Snapshot, func())
}

func listNotificationsHandler(svc InboxService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := CallerIdentity(r.Context())

		notifs, err := svc.ListByUser(r.Context(), ident.UID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toNotificationList(notifs))
	}
}

func markNotificationReadHandler(svc InboxService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		ident, _ := CallerIdentity(r.Context())

		n, err := svc.MarkRead(r.Context(), id, ident.UID)
		if err != nil {
			if errors.Is(err, notification.ErrNotificationNotFound) {
				writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toNotificationResponse(n))
	}
}

func inboxStreamHandler(svc InboxService, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := CallerIdentity(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		snaps, unsubscribe := svc.Subscribe(r.Context(), ident.UID)
		defer unsubscribe()

		done := readUntilClose(conn)

		for {
			select {
			case <-done:
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}

				resp := InboxSnapshotResponse{Notifications: toNotificationList(snap.Notifications)}
				if snap.Err != nil {
					resp = InboxSnapshotResponse{Error: snap.Err.Error()}
				}

				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(resp); err != nil {
					log.Debug().Err(err).Msg("inbox stream write failed, closing")
					return
				}
			}
		}
	}
}
