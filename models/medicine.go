package models

// Medicine is an inventory item owned by the backend.
type Medicine struct {
	ID          string  `db:"id" json:"_id"`
	Name        string  `db:"name" json:"name"`
	Strength    string  `db:"strength" json:"strength,omitempty"`
	Type        string  `db:"type" json:"type"`
	Price       float64 `db:"price" json:"price"`
	Stock       int     `db:"stock" json:"stock"`
	OutOfStock  bool    `db:"out_of_stock" json:"outOfStock"`
	Description string  `db:"description" json:"description,omitempty"`
	ImageURL    string  `db:"image_url" json:"imageUrl,omitempty"`
}
