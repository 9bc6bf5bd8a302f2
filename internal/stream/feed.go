// Package stream keeps live views of the queue. Writers publish change
// events onto named channels; subscribers re-query the store on every event
// and receive the full current result set (level-triggered, never a diff).
package stream

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-queue-service/internal/queue"
)

// Feed is the change-event transport between writers and projections.
type Feed interface {
	// Publish fans a change event out to every subscriber of the channels.
	// Best effort; failures are logged by implementations, not returned.
	Publish(ctx context.Context, channels ...string)

	// Subscribe returns a stream of channel names that received events, and
	// a teardown func. Teardown is idempotent.
	Subscribe(ctx context.Context, channels ...string) (<-chan string, func(), error)
}

// Channel naming. One channel per (doctor, date) partition, one per patient,
// one per user inbox.

func QueueChannel(doctorID uuid.UUID, date string) string {
	return "changes:queue:" + doctorID.String() + ":" + date
}

func PatientChannel(patientID uuid.UUID) string {
	return "changes:patient:" + patientID.String()
}

func InboxChannel(userID uuid.UUID) string {
	return "changes:inbox:" + userID.String()
}

// AppointmentPublisher implements queue.Publisher over a Feed. Each change
// touches the appointment's partition channel and its patient channel.
type AppointmentPublisher struct {
	Feed Feed
}

func (p AppointmentPublisher) AppointmentChanged(ctx context.Context, a *queue.Appointment) {
	p.Feed.Publish(ctx, QueueChannel(a.DoctorID, a.Date), PatientChannel(a.PatientID))
}

// InboxPublisher announces notification inbox changes over a Feed.
type InboxPublisher struct {
	Feed Feed
}

func (p InboxPublisher) InboxChanged(ctx context.Context, userID uuid.UUID) {
	p.Feed.Publish(ctx, InboxChannel(userID))
}
