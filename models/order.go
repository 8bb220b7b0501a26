package models

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "Placed"
	OrderStatusAccepted       OrderStatus = "Accepted"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// Terminal reports whether no further status change can be requested
// from this status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// DeliveryType distinguishes courier delivery from in-store pickup.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Customer is the ordering user as exposed to the pharmacy.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// OrderItem is one line of an order. Price is the unit price at order time.
type OrderItem struct {
	MedicineID   string  `json:"medicineId"`
	MedicineName string  `json:"medicineName"`
	Strength     string  `json:"strength,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

// Order is the backend's order record as cached by the dashboard.
// The backend owns it; the dashboard never mutates a cached copy directly,
// it refetches after a confirmed status change.
type Order struct {
	ID              string       `db:"id" json:"_id"`
	Customer        Customer     `json:"user"`
	Items           []OrderItem  `json:"items"`
	DeliveryType    DeliveryType `db:"delivery_type" json:"deliveryType"`
	Address         string       `db:"address" json:"address,omitempty"`
	Status          OrderStatus  `db:"status" json:"status"`
	CreatedAt       string       `db:"created_at" json:"createdAt"`
	PrescriptionURL string       `db:"prescription_url" json:"prescriptionUrl,omitempty"`
	PaymentMethod   string       `db:"payment_method" json:"paymentMethod"`
}

// Total sums quantity * unit price over all items.
func (o *Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}
