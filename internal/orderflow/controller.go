package orderflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pharmacy-dashboard/internal/api"
	"pharmacy-dashboard/models"
)

// ErrTransitionNotAllowed is returned when the requested target status is not
// reachable from the order's current status. The backend is never contacted.
var ErrTransitionNotAllowed = errors.New("status transition not allowed")

// ErrRequestInFlight is returned when a status update for the same order has
// been submitted and has not resolved yet.
var ErrRequestInFlight = errors.New("status update already in flight")

// transitions are the status changes the dashboard may request. The backend
// remains the final authority and may still refuse any of them.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPlaced:         {models.OrderStatusAccepted, models.OrderStatusCancelled},
	models.OrderStatusAccepted:       {models.OrderStatusOutForDelivery},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered},
}

// AllowedTransitions returns the target statuses the dashboard may request
// from the given status, in display order. Empty for terminal statuses.
func AllowedTransitions(current models.OrderStatus) []models.OrderStatus {
	if current.Terminal() {
		return nil
	}
	next := transitions[current]
	out := make([]models.OrderStatus, len(next))
	copy(out, next)
	return out
}

// TransitionAllowed reports whether current -> target may be requested.
func TransitionAllowed(current, target models.OrderStatus) bool {
	for _, s := range transitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// StatusSubmitter submits an accepted status change to the backend.
type StatusSubmitter interface {
	UpdateOrderStatus(ctx context.Context, upd api.StatusUpdate) error
}

// Controller mediates every status mutation the dashboard requests. It
// rejects illegal transitions before any network call, suppresses duplicate
// in-flight requests per order, and refetches the order cache after a
// confirmed mutation instead of mutating it optimistically.
type Controller struct {
	submitter StatusSubmitter
	refetch   func(ctx context.Context) error

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewController creates a Controller. refetch is invoked exactly once after
// each confirmed mutation to refresh the cached order list.
func NewController(submitter StatusSubmitter, refetch func(ctx context.Context) error) *Controller {
	return &Controller{
		submitter: submitter,
		refetch:   refetch,
		inFlight:  map[string]bool{},
	}
}

// InFlight reports whether a status update for the order is unresolved.
// The UI disables the triggering control while this is true.
func (c *Controller) InFlight(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[orderID]
}

// RequestTransition validates current -> target against the transition table
// and, if legal, submits it. reason is only sent when target is Cancelled;
// it is ignored otherwise. On backend acceptance the cached order list is
// refetched; on any failure the cache is left untouched.
func (c *Controller) RequestTransition(ctx context.Context, orderID string, current, target models.OrderStatus, reason string) error {
	if !TransitionAllowed(current, target) {
		return fmt.Errorf("%s -> %s: %w", current, target, ErrTransitionNotAllowed)
	}
	if target != models.OrderStatusCancelled {
		reason = ""
	}

	c.mu.Lock()
	if c.inFlight[orderID] {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	c.inFlight[orderID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, orderID)
		c.mu.Unlock()
	}()

	upd := api.StatusUpdate{OrderID: orderID, Status: target, RejectionReason: reason}
	if err := c.submitter.UpdateOrderStatus(ctx, upd); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if c.refetch != nil {
		if err := c.refetch(ctx); err != nil {
			return fmt.Errorf("refresh orders after status update: %w", err)
		}
	}
	return nil
}
