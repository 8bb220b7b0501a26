package dashboard

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pharmacy-dashboard/internal/api"
	"pharmacy-dashboard/internal/auth"
	"pharmacy-dashboard/internal/notify"
	"pharmacy-dashboard/internal/orderflow"
	"pharmacy-dashboard/internal/store"
	"pharmacy-dashboard/internal/tracking"
	"pharmacy-dashboard/models"
)

// Session is the tracking surface the dashboard manages. Satisfied by
// *tracking.Session; narrowed to an interface so tests can substitute one.
type Session interface {
	Start()
	Close()
	OrderID() string
	State() tracking.ConnectionState
	Latest() *models.TrackingFrame
}

// Dashboard is the session hub for one signed-in pharmacy: it owns the cached
// order list, the status controller, at most one live tracking session, and
// the notification poll loop.
type Dashboard struct {
	client        *api.Client
	auth          *auth.Store
	orders        *store.OrderStore
	notifications *store.NotificationStore
	forwarder     *notify.Forwarder // nil when Telegram forwarding is disabled
	logger        *log.Logger

	// Status mediates every order status mutation.
	Status *orderflow.Controller

	newSession func(orderID string, observer func(models.TrackingFrame)) Session

	mu     sync.Mutex
	active Session
}

// New wires a Dashboard. forwarder may be nil.
func New(client *api.Client, authStore *auth.Store, orders *store.OrderStore, notifications *store.NotificationStore, forwarder *notify.Forwarder, logger *log.Logger) *Dashboard {
	d := &Dashboard{
		client:        client,
		auth:          authStore,
		orders:        orders,
		notifications: notifications,
		forwarder:     forwarder,
		logger:        logger,
	}
	d.Status = orderflow.NewController(client, d.RefreshOrders)
	d.newSession = func(orderID string, observer func(models.TrackingFrame)) Session {
		return tracking.NewSession(d.client.BaseURL(), orderID, d.auth, tracking.Options{
			Observer: observer,
			Logger:   logger,
		})
	}
	return d
}

// RefreshOrders refetches the order list from the backend and replaces the
// local cache. If the actively tracked order is no longer "Out for Delivery"
// its stream is torn down.
func (d *Dashboard) RefreshOrders(ctx context.Context) error {
	orders, err := d.client.GetOrders(ctx)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	if err := d.orders.ReplaceAll(ctx, orders); err != nil {
		return fmt.Errorf("cache orders: %w", err)
	}

	d.mu.Lock()
	active := d.active
	d.mu.Unlock()
	if active == nil {
		return nil
	}
	for _, o := range orders {
		if o.ID == active.OrderID() {
			if o.Status == models.OrderStatusOutForDelivery {
				return nil
			}
			break
		}
	}
	d.logger.Printf("order %s left Out for Delivery, closing tracking stream", active.OrderID())
	d.CloseTracking()
	return nil
}

// Filter narrows the order list the way the orders screen does.
type Filter struct {
	Search string             // matches customer name, phone, or order id
	Status models.OrderStatus // empty for all statuses
}

// Orders returns cached orders matching the filter, in the order the
// backend listed them.
func (d *Dashboard) Orders(ctx context.Context, f Filter) ([]*models.Order, error) {
	all, err := d.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	if f.Search == "" && f.Status == "" {
		return all, nil
	}
	needle := strings.ToLower(f.Search)
	var out []*models.Order
	for _, o := range all {
		if f.Status != "" && !strings.EqualFold(string(o.Status), string(f.Status)) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(o.Customer.Name), needle) &&
			!strings.Contains(o.Customer.Phone, f.Search) &&
			!strings.Contains(o.ID, f.Search) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Actions returns the status changes the UI may offer for an order.
// Empty for terminal statuses.
func (d *Dashboard) Actions(o *models.Order) []models.OrderStatus {
	return orderflow.AllowedTransitions(o.Status)
}

// AcceptOrder requests Placed -> Accepted.
func (d *Dashboard) AcceptOrder(ctx context.Context, o *models.Order) error {
	return d.Status.RequestTransition(ctx, o.ID, o.Status, models.OrderStatusAccepted, "")
}

// RejectOrder requests Placed -> Cancelled with an optional free-text reason.
func (d *Dashboard) RejectOrder(ctx context.Context, o *models.Order, reason string) error {
	return d.Status.RequestTransition(ctx, o.ID, o.Status, models.OrderStatusCancelled, reason)
}

// MarkOutForDelivery requests Accepted -> Out for Delivery.
func (d *Dashboard) MarkOutForDelivery(ctx context.Context, o *models.Order) error {
	return d.Status.RequestTransition(ctx, o.ID, o.Status, models.OrderStatusOutForDelivery, "")
}

// MarkDelivered requests Out for Delivery -> Delivered.
func (d *Dashboard) MarkDelivered(ctx context.Context, o *models.Order) error {
	return d.Status.RequestTransition(ctx, o.ID, o.Status, models.OrderStatusDelivered, "")
}

// ViewOrder returns the cached order and, when it is out for delivery,
// activates its tracking session. Opening a different order closes the
// previous session first, so at most one stream is ever live.
func (d *Dashboard) ViewOrder(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := d.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	if o.Status == models.OrderStatusOutForDelivery {
		d.openTracking(orderID)
	} else {
		d.CloseTracking()
	}
	return o, nil
}

func (d *Dashboard) openTracking(orderID string) {
	for {
		d.mu.Lock()
		if d.active != nil {
			if d.active.OrderID() == orderID {
				d.mu.Unlock()
				return
			}
			// Close outside the lock, then re-check: a concurrent call may
			// have installed another session in the window.
			prev := d.active
			d.active = nil
			d.mu.Unlock()
			prev.Close()
			continue
		}
		sess := d.newSession(orderID, d.onFrame)
		d.active = sess
		d.mu.Unlock()
		sess.Start()
		return
	}
}

// onFrame observes every valid frame of the active session. Terminal
// delivery telemetry triggers an order-list refresh, which in turn tears the
// stream down. The refresh runs on its own goroutine: the observer is called
// from the stream's read loop and must not block or re-enter Close.
func (d *Dashboard) onFrame(f models.TrackingFrame) {
	if !f.Delivered() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := d.RefreshOrders(ctx); err != nil {
			d.logger.Printf("refresh after delivery telemetry: %v", err)
		}
	}()
}

// CloseTracking tears down the active tracking session, if any.
func (d *Dashboard) CloseTracking() {
	d.mu.Lock()
	active := d.active
	d.active = nil
	d.mu.Unlock()
	if active != nil {
		active.Close()
	}
}

// Tracking returns the active tracking session, or nil.
func (d *Dashboard) Tracking() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// PollNotifications fetches backend notifications into the local cache and
// flushes the forwarder.
func (d *Dashboard) PollNotifications(ctx context.Context) error {
	ns, err := d.client.GetNotifications(ctx)
	if err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}
	for _, n := range ns {
		if err := d.notifications.Upsert(ctx, n); err != nil {
			return fmt.Errorf("cache notification %s: %w", n.ID, err)
		}
	}
	if d.forwarder != nil {
		return d.forwarder.Flush(ctx)
	}
	return nil
}

// RunNotificationLoop polls notifications at the given interval until ctx is
// cancelled. Poll failures are logged and retried on the next tick.
func (d *Dashboard) RunNotificationLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := d.PollNotifications(ctx); err != nil && ctx.Err() == nil {
			d.logger.Printf("notification poll: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases everything the dashboard holds open.
func (d *Dashboard) Close() {
	d.CloseTracking()
}
