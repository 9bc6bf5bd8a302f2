package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/notification"
	"github.com/hackgods/hospital-queue-service/internal/queue"
	"github.com/hackgods/hospital-queue-service/internal/stream"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

// memUsers is an in-memory user.Repository.
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]*user.User)}
}

func (r *memUsers) Create(ctx context.Context, u user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, user.ErrEmailTaken
		}
	}
	u.UID = uuid.New()
	u.CreatedAt = time.Now()
	r.users[u.UID] = &u
	cp := u
	return &cp, nil
}

func (r *memUsers) GetByUID(ctx context.Context, uid uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[uid]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memUsers) ListDoctors(ctx context.Context) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []user.User
	for _, u := range r.users {
		if u.Role == user.RoleDoctor {
			out = append(out, *u)
		}
	}
	return out, nil
}

// fakeQueue implements QueueService with canned queue semantics.
type fakeQueue struct {
	mu       sync.Mutex
	appts    map[uuid.UUID]*queue.Appointment
	counters map[string]int
	busy     bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		appts:    make(map[uuid.UUID]*queue.Appointment),
		counters: make(map[string]int),
	}
}

func (q *fakeQueue) Book(ctx context.Context, b queue.Booking) (*queue.Appointment, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	key := b.DoctorID.String() + "/" + b.Date
	q.counters[key]++
	a := &queue.Appointment{
		ID:           uuid.New(),
		PatientID:    b.PatientID,
		PatientEmail: b.PatientEmail,
		DoctorID:     b.DoctorID,
		DoctorName:   b.DoctorName,
		Date:         b.Date,
		QueueNumber:  q.counters[key],
		Status:       queue.StatusWaiting,
		CreatedAt:    time.Now(),
	}
	q.appts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (q *fakeQueue) Get(ctx context.Context, id uuid.UUID) (*queue.Appointment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	a, ok := q.appts[id]
	if !ok {
		return nil, queue.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (q *fakeQueue) Cancel(ctx context.Context, id uuid.UUID) (*queue.Appointment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	a, ok := q.appts[id]
	if !ok {
		return nil, queue.ErrAppointmentNotFound
	}
	if a.Status != queue.StatusWaiting {
		return nil, fmt.Errorf("%w: cannot cancel appointment with status: %s", queue.ErrInvalidStatusTransition, a.Status)
	}
	a.Status = queue.StatusCancelled
	cp := *a
	return &cp, nil
}

func (q *fakeQueue) Reschedule(ctx context.Context, id uuid.UUID, newDate string) (*queue.Appointment, error) {
	if err := queue.ValidateDate(newDate); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	a, ok := q.appts[id]
	if !ok {
		return nil, queue.ErrAppointmentNotFound
	}
	a.Date = newDate
	a.Status = queue.StatusWaiting
	cp := *a
	return &cp, nil
}

func (q *fakeQueue) Delete(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.appts[id]; !ok {
		return queue.ErrAppointmentNotFound
	}
	delete(q.appts, id)
	return nil
}

func (q *fakeQueue) Advance(ctx context.Context, doctorID uuid.UUID, date string) (*queue.Appointment, error) {
	if err := queue.ValidateDate(date); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.busy {
		return nil, queue.ErrQueueBusy
	}

	for _, a := range q.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status == queue.StatusInProgress {
			a.Status = queue.StatusCompleted
		}
	}
	var next *queue.Appointment
	for _, a := range q.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status == queue.StatusWaiting {
			if next == nil || a.QueueNumber < next.QueueNumber {
				next = a
			}
		}
	}
	if next == nil {
		return nil, nil
	}
	next.Status = queue.StatusInProgress
	cp := *next
	return &cp, nil
}

func (q *fakeQueue) list(keep func(*queue.Appointment) bool) []queue.Appointment {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []queue.Appointment
	for _, a := range q.appts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	return out
}

func (q *fakeQueue) DoctorRoster(ctx context.Context, doctorID uuid.UUID, date string) ([]queue.Appointment, error) {
	return q.list(func(a *queue.Appointment) bool { return a.DoctorID == doctorID && a.Date == date }), nil
}

func (q *fakeQueue) WaitingQueue(ctx context.Context, doctorID uuid.UUID, date string) ([]queue.Appointment, error) {
	return q.list(func(a *queue.Appointment) bool {
		return a.DoctorID == doctorID && a.Date == date && a.Status == queue.StatusWaiting
	}), nil
}

func (q *fakeQueue) PatientDay(ctx context.Context, patientID uuid.UUID, date string) ([]queue.Appointment, error) {
	return q.list(func(a *queue.Appointment) bool { return a.PatientID == patientID && a.Date == date }), nil
}

func (q *fakeQueue) PatientHistory(ctx context.Context, patientID uuid.UUID) ([]queue.Appointment, error) {
	return q.list(func(a *queue.Appointment) bool { return a.PatientID == patientID }), nil
}

// fakeInbox implements InboxService.
type fakeInbox struct {
	mu     sync.Mutex
	notifs map[uuid.UUID]*notification.Notification
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{notifs: make(map[uuid.UUID]*notification.Notification)}
}

func (i *fakeInbox) add(userID uuid.UUID, message string) uuid.UUID {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := &notification.Notification{ID: uuid.New(), UserID: userID, Message: message, CreatedAt: time.Now()}
	i.notifs[n.ID] = n
	return n.ID
}

func (i *fakeInbox) MarkRead(ctx context.Context, id, userID uuid.UUID) (*notification.Notification, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	n, ok := i.notifs[id]
	if !ok || n.UserID != userID {
		return nil, notification.ErrNotificationNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

func (i *fakeInbox) ListByUser(ctx context.Context, userID uuid.UUID) ([]notification.Notification, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var out []notification.Notification
	for _, n := range i.notifs {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (i *fakeInbox) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan notification.Snapshot, func()) {
	out := make(chan notification.Snapshot, 1)
	notifs, _ := i.ListByUser(ctx, userID)
	out <- notification.Snapshot{Notifications: notifs}
	return out, func() {}
}

// nullProjector satisfies QueueProjector for routes the test never streams.
type nullProjector struct{}

func (nullProjector) Subscribe(ctx context.Context, f stream.Filter) (<-chan stream.Snapshot, func()) {
	out := make(chan stream.Snapshot, 1)
	close(out)
	return out, func() {}
}

type testEnv struct {
	server *httptest.Server
	users  *memUsers
	queue  *fakeQueue
	inbox  *fakeInbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUsers()
	q := newFakeQueue()
	inbox := newFakeInbox()

	router := NewRouter(RouterConfig{
		Queue:         q,
		Projector:     nullProjector{},
		Notifications: inbox,
		Billing:       nil,
		Users:         users,
		Auth:          AuthConfig{Secret: "test-secret", TokenTTL: time.Hour},
		RateLimiter:   NewRateLimiter(100, 100),
		Log:           zerolog.Nop(),
		Env:           "test",
		Version:       "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, users: users, queue: q, inbox: inbox}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func (e *testEnv) register(t *testing.T, email, role, name string) (string, uuid.UUID) {
	t.Helper()

	resp, body := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    email,
		Password: "password123",
		Role:     role,
		Name:     name,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, resp.StatusCode, body)
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return tr.Token, tr.User.UID
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	token, _ := e.register(t, "pat@example.com", "patient", "")
	if token == "" {
		t.Fatal("expected a token from register")
	}

	// Duplicate email is rejected.
	resp, _ := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "pat@example.com", Password: "x", Role: "patient",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", resp.StatusCode)
	}

	// Unknown role is rejected.
	resp, _ = e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "n@example.com", Password: "x", Role: "nurse",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad role register: status %d, want 400", resp.StatusCode)
	}

	// Login happy path.
	resp, body := e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "pat@example.com", Password: "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d: %s", resp.StatusCode, body)
	}

	// Wrong password and unknown email both come back 401.
	resp, _ = e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "pat@example.com", Password: "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password login: status %d, want 401", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "ghost@example.com", Password: "password123",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown email login: status %d, want 401", resp.StatusCode)
	}
}

func TestDoctorRegistrationRequiresName(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "doc@example.com", Password: "x", Role: "doctor",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("nameless doctor register: status %d, want 400", resp.StatusCode)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodGet, "/me", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", resp.StatusCode)
	}
}

func TestBookingRoleGate(t *testing.T) {
	e := newTestEnv(t)
	doctorToken, doctorUID := e.register(t, "doc@example.com", "doctor", "Dr. House")
	patientToken, _ := e.register(t, "pat@example.com", "patient", "")

	req := BookAppointmentRequest{
		DoctorID:   doctorUID.String(),
		DoctorName: "Dr. House",
		Date:       "2026-09-01",
	}

	// Doctors cannot book.
	resp, _ := e.do(t, http.MethodPost, "/appointments", doctorToken, req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("doctor booking: status %d, want 403", resp.StatusCode)
	}

	// Patients can.
	resp, body := e.do(t, http.MethodPost, "/appointments", patientToken, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("patient booking: status %d: %s", resp.StatusCode, body)
	}

	var appt AppointmentResponse
	if err := json.Unmarshal(body, &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if appt.QueueNumber != 1 {
		t.Errorf("queue number = %d, want 1", appt.QueueNumber)
	}
	if appt.Status != string(queue.StatusWaiting) {
		t.Errorf("status = %q, want waiting", appt.Status)
	}
}

func TestCancelOwnership(t *testing.T) {
	e := newTestEnv(t)
	_, doctorUID := e.register(t, "doc@example.com", "doctor", "Dr. House")
	ownerToken, _ := e.register(t, "owner@example.com", "patient", "")
	otherToken, _ := e.register(t, "other@example.com", "patient", "")

	_, body := e.do(t, http.MethodPost, "/appointments", ownerToken, BookAppointmentRequest{
		DoctorID: doctorUID.String(), DoctorName: "Dr. House", Date: "2026-09-01",
	})
	var appt AppointmentResponse
	if err := json.Unmarshal(body, &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}

	// A different patient cannot cancel it.
	resp, _ := e.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", otherToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign cancel: status %d, want 403", resp.StatusCode)
	}

	// The owner can.
	resp, _ = e.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner cancel: status %d, want 200", resp.StatusCode)
	}

	// Cancelling again conflicts.
	resp, _ = e.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", ownerToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second cancel: status %d, want 409", resp.StatusCode)
	}
}

func TestAdvanceQueue(t *testing.T) {
	e := newTestEnv(t)
	doctorToken, doctorUID := e.register(t, "doc@example.com", "doctor", "Dr. House")
	patientToken, _ := e.register(t, "pat@example.com", "patient", "")

	path := "/queues/" + doctorUID.String() + "/2026-09-01/advance"

	// Patients cannot advance.
	resp, _ := e.do(t, http.MethodPost, path, patientToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("patient advance: status %d, want 403", resp.StatusCode)
	}

	// Empty queue: promoted is null.
	resp, body := e.do(t, http.MethodPost, path, doctorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("empty advance: status %d: %s", resp.StatusCode, body)
	}
	var empty struct {
		Promoted *AppointmentResponse `json:"promoted"`
	}
	if err := json.Unmarshal(body, &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Promoted != nil {
		t.Fatalf("expected null promoted, got %+v", empty.Promoted)
	}

	// With a waiting patient, advancement promotes them.
	e.do(t, http.MethodPost, "/appointments", patientToken, BookAppointmentRequest{
		DoctorID: doctorUID.String(), DoctorName: "Dr. House", Date: "2026-09-01",
	})
	resp, body = e.do(t, http.MethodPost, path, doctorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: status %d: %s", resp.StatusCode, body)
	}
	var got struct {
		Promoted *AppointmentResponse `json:"promoted"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Promoted == nil || got.Promoted.Status != string(queue.StatusInProgress) {
		t.Fatalf("expected promoted in-progress appointment, got %+v", got.Promoted)
	}
}

func TestAdvanceBusyMapsToConflict(t *testing.T) {
	e := newTestEnv(t)
	doctorToken, doctorUID := e.register(t, "doc@example.com", "doctor", "Dr. House")
	e.queue.busy = true

	resp, _ := e.do(t, http.MethodPost, "/queues/"+doctorUID.String()+"/2026-09-01/advance", doctorToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("busy advance: status %d, want 409", resp.StatusCode)
	}
}

func TestGetUnknownAppointment(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.register(t, "pat@example.com", "patient", "")

	resp, _ := e.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown appointment: status %d, want 404", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodGet, "/appointments/not-a-uuid", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed id: status %d, want 400", resp.StatusCode)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	_, doctorUID := e.register(t, "doc@example.com", "doctor", "Dr. House")
	patientToken, _ := e.register(t, "pat@example.com", "patient", "")
	adminToken, _ := e.register(t, "admin@example.com", "admin", "")

	_, body := e.do(t, http.MethodPost, "/appointments", patientToken, BookAppointmentRequest{
		DoctorID: doctorUID.String(), DoctorName: "Dr. House", Date: "2026-09-01",
	})
	var appt AppointmentResponse
	if err := json.Unmarshal(body, &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}

	resp, _ := e.do(t, http.MethodDelete, "/appointments/"+appt.ID.String(), patientToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("patient delete: status %d, want 403", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodDelete, "/appointments/"+appt.ID.String(), adminToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("admin delete: status %d, want 204", resp.StatusCode)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	e := newTestEnv(t)
	token, uid := e.register(t, "pat@example.com", "patient", "")
	otherToken, _ := e.register(t, "other@example.com", "patient", "")

	id := e.inbox.add(uid, "Your turn! Please proceed to the doctor.")

	resp, body := e.do(t, http.MethodGet, "/notifications", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list notifications: status %d", resp.StatusCode)
	}
	var notifs []NotificationResponse
	if err := json.Unmarshal(body, &notifs); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(notifs) != 1 || notifs[0].Read {
		t.Fatalf("expected one unread notification, got %+v", notifs)
	}

	// Another user cannot mark it read.
	resp, _ = e.do(t, http.MethodPost, "/notifications/"+id.String()+"/read", otherToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign mark read: status %d, want 404", resp.StatusCode)
	}

	resp, body = e.do(t, http.MethodPost, "/notifications/"+id.String()+"/read", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: status %d: %s", resp.StatusCode, body)
	}
	var n NotificationResponse
	if err := json.Unmarshal(body, &n); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if !n.Read {
		t.Fatal("expected read=true")
	}
}

func TestDoctorRoster(t *testing.T) {
	e := newTestEnv(t)
	doctorToken, doctorUID := e.register(t, "doc@example.com", "doctor", "Dr. House")
	patientToken, _ := e.register(t, "pat@example.com", "patient", "")

	e.do(t, http.MethodPost, "/appointments", patientToken, BookAppointmentRequest{
		DoctorID: doctorUID.String(), DoctorName: "Dr. House", Date: "2026-09-01",
	})

	resp, body := e.do(t, http.MethodGet, "/queues/"+doctorUID.String()+"/2026-09-01", doctorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("roster: status %d: %s", resp.StatusCode, body)
	}
	var appts []AppointmentResponse
	if err := json.Unmarshal(body, &appts); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 roster entry, got %d", len(appts))
	}

	resp, _ = e.do(t, http.MethodGet, "/queues/"+doctorUID.String()+"/not-a-date", doctorToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date roster: status %d, want 400", resp.StatusCode)
	}
}

func TestRateLimitOnAuth(t *testing.T) {
	users := newMemUsers()
	router := NewRouter(RouterConfig{
		Queue:         newFakeQueue(),
		Projector:     nullProjector{},
		Notifications: newFakeInbox(),
		Users:         users,
		Auth:          AuthConfig{Secret: "test-secret", TokenTTL: time.Hour},
		RateLimiter:   NewRateLimiter(1, 2),
		Log:           zerolog.Nop(),
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	var limited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected the rate limiter to trip")
	}
}

func TestHealthLiveness(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("liveness: status %d", resp.StatusCode)
	}
	var live LivenessResponse
	if err := json.Unmarshal(body, &live); err != nil {
		t.Fatalf("decode liveness: %v", err)
	}
	if live.Status != "ok" {
		t.Fatalf("liveness status %q, want ok", live.Status)
	}
}
