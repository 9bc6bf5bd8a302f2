package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/queue"
)

// Snapshot is one delivery to a subscriber: either the full ordered result
// set, or the error that prevented computing it. An empty Appointments slice
// with a nil Err really means zero matching rows.
type Snapshot struct {
	Appointments []queue.Appointment
	Err          error
}

// View is the read side the projector queries on every change event.
// Satisfied by queue.Repository.
type View interface {
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]queue.Appointment, error)
	ListWaitingByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]queue.Appointment, error)
	ListByPatientDate(ctx context.Context, patientID uuid.UUID, date string) ([]queue.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]queue.Appointment, error)
}

type filterKind int

const (
	filterDoctorRoster filterKind = iota
	filterWaitingQueue
	filterPatientDay
	filterPatientHistory
)

// Filter selects one of the four supported live views.
type Filter struct {
	kind       filterKind
	doctorID   uuid.UUID
	patientID  uuid.UUID
	date       string
	doctorName string // substring, patient day view only
}

// DoctorRoster is the doctor's full daily list, all statuses, by queue number.
func DoctorRoster(doctorID uuid.UUID, date string) Filter {
	return Filter{kind: filterDoctorRoster, doctorID: doctorID, date: date}
}

// WaitingQueue is the live public queue: waiting only, by queue number.
func WaitingQueue(doctorID uuid.UUID, date string) Filter {
	return Filter{kind: filterWaitingQueue, doctorID: doctorID, date: date}
}

// PatientDay is a patient's own queue check for one date, optionally narrowed
// by a case-insensitive partial doctor-name match.
func PatientDay(patientID uuid.UUID, date, doctorName string) Filter {
	return Filter{kind: filterPatientDay, patientID: patientID, date: date, doctorName: doctorName}
}

// PatientHistory is a patient's full appointment history, all dates.
func PatientHistory(patientID uuid.UUID) Filter {
	return Filter{kind: filterPatientHistory, patientID: patientID}
}

var errBadFilter = errors.New("malformed view filter")

func (f Filter) validate() error {
	switch f.kind {
	case filterDoctorRoster, filterWaitingQueue:
		if f.doctorID == uuid.Nil {
			return fmt.Errorf("%w: doctor id", errBadFilter)
		}
		return queue.ValidateDate(f.date)
	case filterPatientDay:
		if f.patientID == uuid.Nil {
			return fmt.Errorf("%w: patient id", errBadFilter)
		}
		return queue.ValidateDate(f.date)
	case filterPatientHistory:
		if f.patientID == uuid.Nil {
			return fmt.Errorf("%w: patient id", errBadFilter)
		}
		return nil
	}
	return errBadFilter
}

func (f Filter) channels() []string {
	switch f.kind {
	case filterDoctorRoster, filterWaitingQueue:
		return []string{QueueChannel(f.doctorID, f.date)}
	default:
		return []string{PatientChannel(f.patientID)}
	}
}

// Projector serves level-triggered subscriptions over the appointment set.
type Projector struct {
	view View
	feed Feed
	log  zerolog.Logger
}

func NewProjector(view View, feed Feed, log zerolog.Logger) *Projector {
	return &Projector{
		view: view,
		feed: feed,
		log:  log.With().Str("component", "projector").Logger(),
	}
}

// Subscribe delivers an initial snapshot, then a fresh one after every change
// event touching the filtered set. A filter or feed failure delivers a single
// error snapshot and closes the stream. The returned teardown is idempotent.
func (p *Projector) Subscribe(ctx context.Context, f Filter) (<-chan Snapshot, func()) {
	out := make(chan Snapshot, 1)

	if err := f.validate(); err != nil {
		out <- Snapshot{Err: err}
		close(out)
		return out, func() {}
	}

	events, stopFeed, err := p.feed.Subscribe(ctx, f.channels()...)
	if err != nil {
		p.log.Error().Err(err).Msg("subscription setup failed")
		out <- Snapshot{Err: fmt.Errorf("establish subscription: %w", err)}
		close(out)
		return out, func() {}
	}

	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)

		push(out, p.snapshot(subCtx, f))

		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				push(out, p.snapshot(subCtx, f))
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			stopFeed()
		})
	}

	return out, unsubscribe
}

func (p *Projector) snapshot(ctx context.Context, f Filter) Snapshot {
	var (
		appts []queue.Appointment
		err   error
	)

	switch f.kind {
	case filterDoctorRoster:
		appts, err = p.view.ListByDoctorDate(ctx, f.doctorID, f.date)
	case filterWaitingQueue:
		appts, err = p.view.ListWaitingByDoctorDate(ctx, f.doctorID, f.date)
	case filterPatientDay:
		appts, err = p.view.ListByPatientDate(ctx, f.patientID, f.date)
		if err == nil {
			appts = filterByDoctorName(appts, f.doctorName)
		}
	case filterPatientHistory:
		appts, err = p.view.ListByPatient(ctx, f.patientID)
	}

	if err != nil {
		p.log.Error().Err(err).Msg("snapshot query failed")
		return Snapshot{Err: err}
	}
	return Snapshot{Appointments: appts}
}

// filterByDoctorName keeps appointments whose doctor name matches the given
// fragment, case-insensitive and partial in either direction.
func filterByDoctorName(appts []queue.Appointment, fragment string) []queue.Appointment {
	frag := strings.ToLower(strings.TrimSpace(fragment))
	if frag == "" {
		return appts
	}

	matched := make([]queue.Appointment, 0, len(appts))
	for _, a := range appts {
		name := strings.ToLower(a.DoctorName)
		if strings.Contains(name, frag) || strings.Contains(frag, name) {
			matched = append(matched, a)
		}
	}
	return matched
}

// push delivers latest-wins: a subscriber that has not drained the previous
// snapshot only ever sees the most recent one.
func push(out chan Snapshot, s Snapshot) {
	for {
		select {
		case out <- s:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
