package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/queue"
	"github.com/hackgods/hospital-queue-service/internal/stream"
)

// QueueProjector serves the live views.
type QueueProjector interface {
	Subscribe(ctx context.Context, f stream.Filter) (<-chan stream.Snapshot, func())
}

func advanceQueueHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "doctorID")
		if !ok {
			return
		}
		date := chi.URLParam(r, "date")

		promoted, err := svc.Advance(r.Context(), doctorID, date)
		if err != nil {
			handleQueueError(w, err)
			return
		}

		if promoted == nil {
			// Empty queue: advancing is a no-op, not an error.
			writeJSON(w, http.StatusOK, map[string]any{"promoted": nil})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"promoted": toAppointmentResponse(promoted)})
	}
}

func doctorRosterHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "doctorID")
		if !ok {
			return
		}
		date := chi.URLParam(r, "date")
		if err := queue.ValidateDate(date); err != nil {
			handleQueueError(w, err)
			return
		}

		var (
			appts []queue.Appointment
			err   error
		)
		if r.URL.Query().Get("waiting") == "true" {
			appts, err = svc.WaitingQueue(r.Context(), doctorID, date)
		} else {
			appts, err = svc.DoctorRoster(r.Context(), doctorID, date)
		}
		if err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func patientAppointmentsHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := pathUUID(w, r, "patientID")
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			appts, err := svc.PatientHistory(r.Context(), patientID)
			if err != nil {
				handleQueueError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentList(appts))
			return
		}

		if err := queue.ValidateDate(date); err != nil {
			handleQueueError(w, err)
			return
		}

		appts, err := svc.PatientDay(r.Context(), patientID, date)
		if err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

// --- WebSocket live views ---

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is token-authenticated; cross-origin browser clients are
	// expected.
	CheckOrigin: func(*http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

func queueStreamHandler(projector QueueProjector, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "doctorID")
		if !ok {
			return
		}
		date := chi.URLParam(r, "date")

		f := stream.DoctorRoster(doctorID, date)
		if r.URL.Query().Get("waiting") == "true" {
			f = stream.WaitingQueue(doctorID, date)
		}

		serveQueueStream(w, r, projector, f, log)
	}
}

func patientStreamHandler(projector QueueProjector, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := pathUUID(w, r, "patientID")
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		doctorName := r.URL.Query().Get("doctor")

		f := stream.PatientHistory(patientID)
		if date != "" {
			f = stream.PatientDay(patientID, date, doctorName)
		}

		serveQueueStream(w, r, projector, f, log)
	}
}

func serveQueueStream(w http.ResponseWriter, r *http.Request, projector QueueProjector, f stream.Filter, log zerolog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	snaps, unsubscribe := projector.Subscribe(r.Context(), f)
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

			resp := QueueSnapshotResponse{Appointments: toAppointmentList(snap.Appointments)}
			if snap.Err != nil {
				resp = QueueSnapshotResponse{Error: snap.Err.Error()}
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(resp); err != nil {
				log.Debug().Err(err).Msg("queue stream write failed, closing")
				return
			}
		}
	}
}

// readUntilClose drains client frames so pings are answered, and signals when
// the peer goes away.
func readUntilClose(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}
