package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/stream"
)

// Publisher announces inbox changes to live subscribers.
type Publisher interface {
	InboxChanged(ctx context.Context, userID uuid.UUID)
}

// Snapshot is one inbox delivery: the user's full notification list, or the
// error that prevented computing it.
type Snapshot struct {
	Notifications []Notification
	Err           error
}

type Service struct {
	repo Repository
	feed stream.Feed
	pub  Publisher
	log  zerolog.Logger
}

func NewService(repo Repository, feed stream.Feed, pub Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		feed: feed,
		pub:  pub,
		log:  log.With().Str("component", "notification").Logger(),
	}
}

// Emit creates an unread notification for the user.
func (s *Service) Emit(ctx context.Context, userID uuid.UUID, message string, appointmentID *uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("emit notification: user id is required")
	}
	if message == "" {
		return fmt.Errorf("emit notification: message is required")
	}

	created, err := s.repo.Insert(ctx, Notification{
		UserID:        userID,
		AppointmentID: appointmentID,
		Message:       message,
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("notification_id", created.ID.String()).
		Str("user_id", userID.String()).
		Msg("notification emitted")

	s.pub.InboxChanged(ctx, userID)
	return nil
}

// MarkRead flips the user's notification to read. Idempotent: marking twice
// succeeds both times.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.pub.InboxChanged(ctx, n.UserID)
	return n, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Subscribe mirrors the queue projector for a user's inbox: an initial
// snapshot, then a fresh one per change, unfiltered by read state.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Snapshot, func()) {
	out := make(chan Snapshot, 1)

	if userID == uuid.Nil {
		out <- Snapshot{Err: fmt.Errorf("subscribe inbox: user id is required")}
		close(out)
		return out, func() {}
	}

	events, stopFeed, err := s.feed.Subscribe(ctx, stream.InboxChannel(userID))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("inbox subscription setup failed")
		out <- Snapshot{Err: fmt.Errorf("establish inbox subscription: %w", err)}
		close(out)
		return out, func() {}
	}

	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)

		s.push(subCtx, out, userID)

		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				s.push(subCtx, out, userID)
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

func (s *Service) push(ctx context.Context, out chan Snapshot, userID uuid.UUID) {
	notifs, err := s.repo.ListByUser(ctx, userID)

	snap := Snapshot{Notifications: notifs}
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("inbox snapshot query failed")
		snap = Snapshot{Err: err}
	}

	for {
		select {
		case out <- snap:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
