package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pharmacy-dashboard/models"
)

// OrderStore is the local read-model cache of backend orders. The refetch
// path writes through it wholesale; nothing in the dashboard mutates a
// cached order in place.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// ReplaceAll swaps the cached order set for the given snapshot in one
// transaction, so readers never observe a partially refreshed cache.
func (s *OrderStore) ReplaceAll(ctx context.Context, orders []*models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for pos, o := range orders {
		items, err := json.Marshal(o.Items)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO orders
            (id, position, customer_name, customer_phone, delivery_type, address, status, created_at, prescription_url, payment_method, items_json)
            VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			o.ID, pos, o.Customer.Name, o.Customer.Phone, string(o.DeliveryType), o.Address,
			string(o.Status), o.CreatedAt, o.PrescriptionURL, o.PaymentMethod, string(items))
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetByID fetches a cached order by its ID. Returns (nil, nil) when absent.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `SELECT id, customer_name, customer_phone, delivery_type, address, status, created_at, prescription_url, payment_method, items_json FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// List returns all cached orders in the order the backend sent them.
func (s *OrderStore) List(ctx context.Context) ([]*models.Order, error) {
	return s.list(ctx, `SELECT id, customer_name, customer_phone, delivery_type, address, status, created_at, prescription_url, payment_method, items_json FROM orders ORDER BY position ASC`)
}

// ListByStatus returns cached orders with the given status, keeping the
// backend's list order.
func (s *OrderStore) ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	return s.list(ctx, `SELECT id, customer_name, customer_phone, delivery_type, address, status, created_at, prescription_url, payment_method, items_json FROM orders WHERE status = ? ORDER BY position ASC`, string(status))
}

func (s *OrderStore) list(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var deliveryType, status, itemsJSON string
	err := row.Scan(&o.ID, &o.Customer.Name, &o.Customer.Phone, &deliveryType, &o.Address,
		&status, &o.CreatedAt, &o.PrescriptionURL, &o.PaymentMethod, &itemsJSON)
	if err != nil {
		return nil, err
	}
	o.DeliveryType = models.DeliveryType(deliveryType)
	o.Status = models.OrderStatus(status)
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, err
	}
	return &o, nil
}
