package models

// Notification is a backend notification shown in the dashboard bell.
type Notification struct {
	ID        string `db:"id" json:"_id"`
	Title     string `db:"title" json:"title"`
	Message   string `db:"message" json:"message"`
	Read      bool   `db:"read" json:"read"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}
