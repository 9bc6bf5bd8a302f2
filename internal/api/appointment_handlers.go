package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-queue-service/internal/queue"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

// QueueService is the slice of the queue service the HTTP layer uses.
type QueueService interface {
	Book(ctx context.Context, b queue.Booking) (*queue.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*queue.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*queue.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate string) (*queue.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Advance(ctx context.Context, doctorID uuid.UUID, date string) (*queue.Appointment, error)
	DoctorRoster(ctx context.Context, doctorID uuid.UUID, date string) ([]queue.Appointment, error)
	WaitingQueue(ctx context.Context, doctorID uuid.UUID, date string) ([]queue.Appointment, error)
	PatientDay(ctx context.Context, patientID uuid.UUID, date string) ([]queue.Appointment, error)
	PatientHistory(ctx context.Context, patientID uuid.UUID) ([]queue.Appointment, error)
}

func bookAppointmentHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := CallerIdentity(r.Context())

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), queue.Booking{
			PatientID:    ident.UID,
			PatientEmail: ident.Email,
			DoctorID:     doctorID,
			DoctorName:   req.DoctorName,
			Date:         req.Date,
		})
		if err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		if !mayMutateAppointment(w, r, svc, id) {
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if !mayMutateAppointment(w, r, svc, id) {
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, req.Date)
		if err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			handleQueueError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// mayMutateAppointment lets the owning patient or an admin touch the record.
func mayMutateAppointment(w http.ResponseWriter, r *http.Request, svc QueueService, id uuid.UUID) bool {
	ident, _ := CallerIdentity(r.Context())

	appt, err := svc.Get(r.Context(), id)
	if err != nil {
		handleQueueError(w, err)
		return false
	}

	if appt.PatientID == ident.UID {
		return true
	}
	if profile, ok := CallerProfile(r.Context()); ok && profile.Role == user.RoleAdmin {
		return true
	}

	writeError(w, http.StatusForbidden, "forbidden", "appointment belongs to another patient")
	return false
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, queue.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, queue.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, queue.ErrQueueBusy):
		writeError(w, http.StatusConflict, "queue_busy", "queue is currently being advanced, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
