package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/stream"
)

type memRepo struct {
	mu     sync.Mutex
	notifs map[uuid.UUID]*Notification
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{notifs: make(map[uuid.UUID]*Notification)}
}

func (r *memRepo) Insert(ctx context.Context, n Notification) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	n.ID = uuid.New()
	n.Read = false
	n.CreatedAt = time.Now()
	r.notifs[n.ID] = &n
	cp := n
	return &cp, nil
}

func (r *memRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifs[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

func (r *memRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var out []Notification
	for _, n := range r.notifs {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// memFeed mirrors the Redis feed for tests.
type memFeed struct {
	mu      sync.Mutex
	subs    map[string][]chan string
	failSub bool
}

func newMemFeed() *memFeed {
	return &memFeed{subs: make(map[string][]chan string)}
}

func (f *memFeed) Publish(ctx context.Context, channels ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range channels {
		for _, out := range f.subs[ch] {
			out <- ch
		}
	}
}

func (f *memFeed) Subscribe(ctx context.Context, channels ...string) (<-chan string, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSub {
		return nil, nil, errors.New("feed unavailable")
	}

	out := make(chan string, 16)
	for _, ch := range channels {
		f.subs[ch] = append(f.subs[ch], out)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, ch := range channels {
				kept := f.subs[ch][:0]
				for _, o := range f.subs[ch] {
					if o != out {
						kept = append(kept, o)
					}
				}
				f.subs[ch] = kept
			}
			close(out)
		})
	}
	return out, stop, nil
}

type countingPublisher struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (p *countingPublisher) InboxChanged(ctx context.Context, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

func recv(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed unexpectedly")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestEmitCreatesUnread(t *testing.T) {
	repo := newMemRepo()
	pub := &countingPublisher{}
	svc := NewService(repo, newMemFeed(), pub, zerolog.Nop())

	userID := uuid.New()
	apptID := uuid.New()
	if err := svc.Emit(context.Background(), userID, "Your turn! Please proceed to the doctor.", &apptID); err != nil {
		t.Fatalf("emit: %v", err)
	}

	notifs, err := svc.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	n := notifs[0]
	if n.Read {
		t.Error("new notification must start unread")
	}
	if n.AppointmentID == nil || *n.AppointmentID != apptID {
		t.Errorf("expected appointment correlation %s, got %v", apptID, n.AppointmentID)
	}
	if pub.count() != 1 {
		t.Errorf("expected one inbox change event, got %d", pub.count())
	}
}

func TestEmitValidates(t *testing.T) {
	svc := NewService(newMemRepo(), newMemFeed(), &countingPublisher{}, zerolog.Nop())
	ctx := context.Background()

	if err := svc.Emit(ctx, uuid.Nil, "hello", nil); err == nil {
		t.Error("expected error for nil user id")
	}
	if err := svc.Emit(ctx, uuid.New(), "", nil); err == nil {
		t.Error("expected error for empty message")
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemFeed(), &countingPublisher{}, zerolog.Nop())
	ctx := context.Background()

	userID := uuid.New()
	if err := svc.Emit(ctx, userID, "message", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	notifs, _ := svc.ListByUser(ctx, userID)

	n, err := svc.MarkRead(ctx, notifs[0].ID, userID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !n.Read {
		t.Fatal("expected read=true")
	}

	// Marking again succeeds and stays read.
	n, err = svc.MarkRead(ctx, notifs[0].ID, userID)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !n.Read {
		t.Fatal("expected read=true after second mark")
	}
}

func TestMarkReadOwnershipEnforced(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemFeed(), &countingPublisher{}, zerolog.Nop())
	ctx := context.Background()

	owner := uuid.New()
	if err := svc.Emit(ctx, owner, "message", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	notifs, _ := svc.ListByUser(ctx, owner)

	_, err := svc.MarkRead(ctx, notifs[0].ID, uuid.New())
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound for foreign user, got %v", err)
	}

	got, _ := svc.ListByUser(ctx, owner)
	if got[0].Read {
		t.Fatal("foreign mark must not flip read state")
	}
}

func TestSubscribeDeliversOnEmit(t *testing.T) {
	repo := newMemRepo()
	feed := newMemFeed()
	svc := NewService(repo, feed, stream.InboxPublisher{Feed: feed}, zerolog.Nop())
	ctx := context.Background()
	userID := uuid.New()

	ch, stop := svc.Subscribe(ctx, userID)
	defer stop()

	s := recv(t, ch)
	if s.Err != nil || len(s.Notifications) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", s)
	}

	if err := svc.Emit(ctx, userID, "first", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	s = recv(t, ch)
	if s.Err != nil {
		t.Fatalf("unexpected error snapshot: %v", s.Err)
	}
	if len(s.Notifications) != 1 || s.Notifications[0].Message != "first" {
		t.Fatalf("expected the emitted notification, got %+v", s.Notifications)
	}
}

func TestSubscribeNilUser(t *testing.T) {
	svc := NewService(newMemRepo(), newMemFeed(), &countingPublisher{}, zerolog.Nop())

	ch, stop := svc.Subscribe(context.Background(), uuid.Nil)
	defer stop()

	s := recv(t, ch)
	if s.Err == nil {
		t.Fatal("expected error snapshot for nil user id")
	}
}

func TestSubscribeFeedFailure(t *testing.T) {
	feed := newMemFeed()
	feed.failSub = true
	svc := NewService(newMemRepo(), feed, &countingPublisher{}, zerolog.Nop())

	ch, stop := svc.Subscribe(context.Background(), uuid.New())
	defer stop()

	s := recv(t, ch)
	if s.Err == nil {
		t.Fatal("expected error snapshot when feed setup fails")
	}
}

func TestSubscribeQueryFailure(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("db down")
	svc := NewService(repo, newMemFeed(), &countingPublisher{}, zerolog.Nop())

	ch, stop := svc.Subscribe(context.Background(), uuid.New())
	defer stop()

	s := recv(t, ch)
	if s.Err == nil {
		t.Fatal("expected error snapshot when the inbox query fails")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	feed := newMemFeed()
	svc := NewService(newMemRepo(), feed, &countingPublisher{}, zerolog.Nop())

	ch, stop := svc.Subscribe(context.Background(), uuid.New())
	recv(t, ch)

	stop()
	stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for channel close")
		}
	}
}
