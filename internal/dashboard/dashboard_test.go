package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pharmacy-dashboard/internal/api"
	"pharmacy-dashboard/internal/auth"
	"pharmacy-dashboard/internal/store"
	"pharmacy-dashboard/internal/testutil"
	"pharmacy-dashboard/internal/tracking"
	"pharmacy-dashboard/models"
)

// backend is a scriptable stand-in for the remote API.
type backend struct {
	mu            sync.Mutex
	orders        []*models.Order
	medicines     []*models.Medicine
	notifications []*models.Notification
	orderFetches  atomic.Int32
	srv           *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.URL.Path {
		case "/orders":
			b.orderFetches.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{"orders": b.orders})
		case "/medicines":
			_ = json.NewEncoder(w).Encode(map[string]any{"medicines": b.medicines})
		case "/notifications":
			_ = json.NewEncoder(w).Encode(map[string]any{"notifications": b.notifications})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) setOrders(orders ...*models.Order) {
	b.mu.Lock()
	b.orders = orders
	b.mu.Unlock()
}

// fakeSession records lifecycle calls instead of opening a real stream.
type fakeSession struct {
	orderID  string
	observer func(models.TrackingFrame)
	started  atomic.Bool
	closed   atomic.Bool
}

func (f *fakeSession) Start()          { f.started.Store(true) }
func (f *fakeSession) Close()          { f.closed.Store(true) }
func (f *fakeSession) OrderID() string { return f.orderID }
func (f *fakeSession) State() tracking.ConnectionState {
	if f.closed.Load() {
		return tracking.StateClosed
	}
	return tracking.StateOpen
}
func (f *fakeSession) Latest() *models.TrackingFrame { return nil }

type sessionLog struct {
	mu       sync.Mutex
	sessions []*fakeSession
}

func (l *sessionLog) factory(orderID string, observer func(models.TrackingFrame)) Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := &fakeSession{orderID: orderID, observer: observer}
	l.sessions = append(l.sessions, s)
	return s
}

func (l *sessionLog) last() *fakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sessions) == 0 {
		return nil
	}
	return l.sessions[len(l.sessions)-1]
}

func order(id string, status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:           id,
		Customer:     models.Customer{Name: "Abebe", Phone: "0911000000"},
		DeliveryType: models.DeliveryTypeDelivery,
		Status:       status,
		CreatedAt:    "2026-08-31T09:00:00Z",
	}
}

func newTestDashboard(t *testing.T, b *backend) (*Dashboard, *sessionLog) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, "dashboard_"+t.Name())
	authStore := auth.NewStore(filepath.Join(t.TempDir(), "token"))
	client := api.NewClient(b.srv.URL, authStore, api.Options{})
	dash := New(client, authStore, store.NewOrderStore(d), store.NewNotificationStore(d), nil,
		log.New(os.Stderr, "test: ", 0))
	sessions := &sessionLog{}
	dash.newSession = sessions.factory
	t.Cleanup(dash.Close)
	return dash, sessions
}

func TestViewOrder_TracksOnlyOutForDelivery(t *testing.T) {
	b := newBackend(t)
	b.setOrders(order("o1", models.OrderStatusPlaced), order("o2", models.OrderStatusOutForDelivery))
	dash, sessions := newTestDashboard(t, b)
	ctx := context.Background()
	if err := dash.RefreshOrders(ctx); err != nil {
		t.Fatalf("RefreshOrders: %v", err)
	}

	if _, err := dash.ViewOrder(ctx, "o1"); err != nil {
		t.Fatalf("ViewOrder o1: %v", err)
	}
	if dash.Tracking() != nil {
		t.Fatalf("tracking opened for a Placed order")
	}

	if _, err := dash.ViewOrder(ctx, "o2"); err != nil {
		t.Fatalf("ViewOrder o2: %v", err)
	}
	sess := sessions.last()
	if sess == nil || sess.orderID != "o2" || !sess.started.Load() {
		t.Fatalf("tracking session not started for o2")
	}

	// Viewing a non-tracked order closes the stream.
	if _, err := dash.ViewOrder(ctx, "o1"); err != nil {
		t.Fatalf("ViewOrder back to o1: %v", err)
	}
	if !sess.closed.Load() {
		t.Fatalf("stream for o2 left open after leaving its details view")
	}
}

func TestViewOrder_SwitchingOrdersLeavesOneSession(t *testing.T) {
	b := newBackend(t)
	b.setOrders(order("a", models.OrderStatusOutForDelivery), order("b", models.OrderStatusOutForDelivery))
	dash, sessions := newTestDashboard(t, b)
	ctx := context.Background()
	if err := dash.RefreshOrders(ctx); err != nil {
		t.Fatalf("RefreshOrders: %v", err)
	}

	if _, err := dash.ViewOrder(ctx, "a"); err != nil {
		t.Fatalf("ViewOrder a: %v", err)
	}
	first := sessions.last()

	if _, err := dash.ViewOrder(ctx, "b"); err != nil {
		t.Fatalf("ViewOrder b: %v", err)
	}
	second := sessions.last()

	if !first.closed.Load() {
		t.Fatalf("previous order's stream not closed on switch")
	}
	if second.closed.Load() || second.orderID != "b" {
		t.Fatalf("new session wrong: %+v", second)
	}
	if dash.Tracking().OrderID() != "b" {
		t.Fatalf("active session = %s, want b", dash.Tracking().OrderID())
	}

	// Re-viewing the same order keeps the session.
	if _, err := dash.ViewOrder(ctx, "b"); err != nil {
		t.Fatalf("ViewOrder b again: %v", err)
	}
	if sessions.last() != second || second.closed.Load() {
		t.Fatalf("re-viewing the tracked order recycled its session")
	}
}

func TestOpenTracking_ConcurrentSwitchesNeverLeakSessions(t *testing.T) {
	b := newBackend(t)
	dash, sessions := newTestDashboard(t, b)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		id := "a"
		if i%2 == 1 {
			id = "b"
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			dash.openTracking(id)
		}(id)
	}
	wg.Wait()

	// Every session except the surviving one must have been closed.
	sessions.mu.Lock()
	open := 0
	total := len(sessions.sessions)
	for _, s := range sessions.sessions {
		if !s.closed.Load() {
			open++
		}
	}
	sessions.mu.Unlock()
	if open != 1 {
		t.Fatalf("unclosed sessions after concurrent switches = %d of %d, want 1", open, total)
	}
	if dash.Tracking() == nil {
		t.Fatalf("no active session after concurrent switches")
	}
}

func TestRefreshOrders_ClosesStreamWhenOrderLeavesDelivery(t *testing.T) {
	b := newBackend(t)
	b.setOrders(order("a", models.OrderStatusOutForDelivery))
	dash, sessions := newTestDashboard(t, b)
	ctx := context.Background()
	if err := dash.RefreshOrders(ctx); err != nil {
		t.Fatalf("RefreshOrders: %v", err)
	}
	if _, err := dash.ViewOrder(ctx, "a"); err != nil {
		t.Fatalf("ViewOrder: %v", err)
	}

	b.setOrders(order("a", models.OrderStatusDelivered))
	if err := dash.RefreshOrders(ctx); err != nil {
		t.Fatalf("second RefreshOrders: %v", err)
	}
	if !sessions.last().closed.Load() {
		t.Fatalf("stream not closed after order was delivered")
	}
	if dash.Tracking() != nil {
		t.Fatalf("dashboard still holds a session for a delivered order")
	}
}

func TestDeliveredTelemetryTriggersRefresh(t *testing.T) {
	b := newBackend(t)
	b.setOrders(order("a", models.OrderStatusOutForDelivery))
	dash, sessions := newTestDashboard(t, b)
	ctx := context.Background()
	if err := dash.RefreshOrders(ctx); err != nil {
		t.Fatalf("RefreshOrders: %v", err)
	}
	if _, err := dash.ViewOrder(ctx, "a"); err != nil {
		t.Fatalf("ViewOrder: %v", err)
	}
	sess := sessions.last()

	// The backend has completed the delivery; terminal telemetry arrives.
	b.setOrders(order("a", models.OrderStatusDelivered))
	before := b.orderFetches.Load()
	sess.observer(models.TrackingFrame{Status: "delivered", Timestamp: 1})

	deadline := time.Now().Add(3 * time.Second)
	for b.orderFetches.Load() == before || !sess.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("delivered telemetry did not refresh and close (fetches=%d closed=%v)",
				b.orderFetches.Load(), sess.closed.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Non-terminal telemetry does not trigger a refresh.
	before = b.orderFetches.Load()
	sess.observer(models.TrackingFrame{Status: "out_for_delivery", Timestamp: 2})
	time.Sleep(50 * time.Millisecond)
	if b.orderFetches.Load() != before {
		t.Fatalf("non-terminal telemetry triggered a refresh")
	}
}

func TestOrders_SearchAndStatusFilter(t *testing.T) {
	b := newBackend(t)
	sara := order("x9", models.OrderStatusAccepted)
	sara.Customer = models.Customer{Name: "Sara", Phone: "0922000000"}
	b.setOrders(order("o1", models.OrderStatusPlaced), sara)
	dash, _ := newTestDashboard(t, b)
	ctx := context.Background()
	if err := dash.RefreshOrders(ctx); err != nil {
		t.Fatalf("RefreshOrders: %v", err)
	}

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"o1", "x9"}},
		{"by name", Filter{Search: "sar"}, []string{"x9"}},
		{"by phone", Filter{Search: "0911"}, []string{"o1"}},
		{"by id", Filter{Search: "x9"}, []string{"x9"}},
		{"by status", Filter{Status: models.OrderStatusAccepted}, []string{"x9"}},
		{"no match", Filter{Search: "zzz"}, nil},
	}
	for _, tc := range cases {
		got, err := dash.Orders(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		ids := make([]string, len(got))
		for i, o := range got {
			ids[i] = o.ID
		}
		if len(ids) != len(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, ids, tc.want)
			continue
		}
		for i := range ids {
			if ids[i] != tc.want[i] {
				t.Errorf("%s: got %v, want %v", tc.name, ids, tc.want)
				break
			}
		}
	}
}

func TestActions_MatchTransitionTable(t *testing.T) {
	b := newBackend(t)
	dash, _ := newTestDashboard(t, b)
	if got := dash.Actions(order("o", models.OrderStatusDelivered)); len(got) != 0 {
		t.Fatalf("actions for Delivered = %v, want none", got)
	}
	got := dash.Actions(order("o", models.OrderStatusPlaced))
	if len(got) != 2 || got[0] != models.OrderStatusAccepted || got[1] != models.OrderStatusCancelled {
		t.Fatalf("actions for Placed = %v", got)
	}
}

func TestPollNotifications_CachesUnread(t *testing.T) {
	b := newBackend(t)
	b.notifications = []*models.Notification{
		{ID: "n1", Message: "Order placed", CreatedAt: "2026-08-31T08:00:00Z"},
		{ID: "n2", Message: "Order cancelled", Read: true, CreatedAt: "2026-08-31T09:00:00Z"},
	}
	dash, _ := newTestDashboard(t, b)
	ctx := context.Background()
	if err := dash.PollNotifications(ctx); err != nil {
		t.Fatalf("PollNotifications: %v", err)
	}
	count, err := dash.notifications.UnreadCount(ctx)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}
}
