package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-queue-service/internal/billing"
	"github.com/hackgods/hospital-queue-service/internal/notification"
	"github.com/hackgods/hospital-queue-service/internal/queue"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

type RegisterRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Name           string `json:"name,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	UID            uuid.UUID `json:"uid"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Name           string    `json:"name,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		UID:            u.UID,
		Email:          u.Email,
		Role:           string(u.Role),
		Name:           u.Name,
		Specialization: u.Specialization,
	}
}

type BookAppointmentRequest struct {
	DoctorID   string `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
	Date       string `json:"date"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	PatientEmail string     `json:"patient_email"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	DoctorName   string     `json:"doctor_name"`
	Date         string     `json:"date"`
	QueueNumber  int        `json:"queue_number"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

func toAppointmentResponse(a *queue.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		PatientEmail: a.PatientEmail,
		DoctorID:     a.DoctorID,
		DoctorName:   a.DoctorName,
		Date:         a.Date,
		QueueNumber:  a.QueueNumber,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		CancelledAt:  a.CancelledAt,
	}
}

func toAppointmentList(appts []queue.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

// QueueSnapshotResponse is one live-view delivery. Either appointments is the
// full current result set, or error says why it could not be computed; the
// two are never conflated.
type QueueSnapshotResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Error        string                `json:"error,omitempty"`
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Message       string     `json:"message"`
	Read          bool       `json:"read"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		UserID:        n.UserID,
		AppointmentID: n.AppointmentID,
		Message:       n.Message,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}

func toNotificationList(ns []notification.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for i := range ns {
		out = append(out, toNotificationResponse(&ns[i]))
	}
	return out
}

// InboxSnapshotResponse mirrors QueueSnapshotResponse for the inbox stream.
type InboxSnapshotResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Error         string                 `json:"error,omitempty"`
}

type BillResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	TotalAmount int64     `json:"total_amount"`
	PDFURL      string    `json:"pdf_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBillResponse(b *billing.Bill) BillResponse {
	return BillResponse{
		ID:          b.ID,
		PatientID:   b.PatientID,
		TotalAmount: b.TotalAmount,
		PDFURL:      b.PDFURL,
		CreatedAt:   b.CreatedAt,
	}
}

type DischargeResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	FileName  string    `json:"file_name"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toDischargeResponse(d *billing.Discharge) DischargeResponse {
	return DischargeResponse{
		ID:        d.ID,
		PatientID: d.PatientID,
		FileName:  d.FileName,
		PDFURL:    d.PDFURL,
		CreatedAt: d.CreatedAt,
	}
}

type HistoryResponse struct {
	Bills        []BillResponse      `json:"bills"`
	Discharges   []DischargeResponse `json:"discharges"`
	TotalBills   int                 `json:"total_bills"`
	TotalAmount  int64               `json:"total_amount"`
	TotalReports int                 `json:"total_reports"`
}
