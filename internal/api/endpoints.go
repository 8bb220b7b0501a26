package api

import (
	"context"
	"net/http"
	"net/url"

	"pharmacy-dashboard/models"
)

// LoginResult is the backend's login response.
type LoginResult struct {
	Token    string           `json:"token"`
	Pharmacy *models.Pharmacy `json:"pharmacy"`
}

// Login authenticates the pharmacy and returns its token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/pharmacy/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile fetches the authenticated pharmacy's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.Pharmacy, error) {
	var out models.Pharmacy
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile submits onboarding/profile changes.
func (c *Client) UpdateProfile(ctx context.Context, p *models.Pharmacy) error {
	return c.do(ctx, http.MethodPost, "/pharmacy/update-profile", p, nil)
}

// GetOrders fetches all incoming orders.
func (c *Client) GetOrders(ctx context.Context) ([]*models.Order, error) {
	var out struct {
		Orders []*models.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// StatusUpdate is the payload of a status mutation.
type StatusUpdate struct {
	OrderID         string             `json:"orderId"`
	Status          models.OrderStatus `json:"status"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
}

// UpdateOrderStatus requests a status change. A nil error means the backend
// durably recorded the new status.
func (c *Client) UpdateOrderStatus(ctx context.Context, upd StatusUpdate) error {
	return c.do(ctx, http.MethodPost, "/orders/status", upd, nil)
}

// GetMedicines fetches the pharmacy's inventory.
func (c *Client) GetMedicines(ctx context.Context) ([]*models.Medicine, error) {
	var out struct {
		Medicines []*models.Medicine `json:"medicines"`
	}
	if err := c.do(ctx, http.MethodGet, "/medicines", nil, &out); err != nil {
		return nil, err
	}
	return out.Medicines, nil
}

// AddMedicine creates an inventory item.
func (c *Client) AddMedicine(ctx context.Context, m *models.Medicine) error {
	return c.do(ctx, http.MethodPost, "/medicines", m, nil)
}

// UpdateMedicine updates an inventory item.
func (c *Client) UpdateMedicine(ctx context.Context, m *models.Medicine) error {
	return c.do(ctx, http.MethodPut, "/medicines/"+url.PathEscape(m.ID), m, nil)
}

// DeleteMedicine removes an inventory item.
func (c *Client) DeleteMedicine(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/medicines/"+url.PathEscape(id), nil, nil)
}

// MarkOutOfStock flags an inventory item as out of stock.
func (c *Client) MarkOutOfStock(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/medicines/"+url.PathEscape(id)+"/out-of-stock", nil, nil)
}

// GetNotifications fetches the pharmacy's notifications.
func (c *Client) GetNotifications(ctx context.Context) ([]*models.Notification, error) {
	var out struct {
		Notifications []*models.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// GetUnreadCount fetches the unread notification count.
func (c *Client) GetUnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/unread/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkAllRead marks every notification as read on the backend.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/notifications/all", nil, nil)
}

// MarkNotificationRead marks one notification as read on the backend.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// SalesOverview is the backend's sales report summary.
type SalesOverview struct {
	TotalOrders    int     `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
	DeliveredCount int     `json:"deliveredCount"`
	CancelledCount int     `json:"cancelledCount"`
}

// GetSalesOverview fetches the sales report summary.
func (c *Client) GetSalesOverview(ctx context.Context) (*SalesOverview, error) {
	var out SalesOverview
	if err := c.do(ctx, http.MethodGet, "/orders/sales-review", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
