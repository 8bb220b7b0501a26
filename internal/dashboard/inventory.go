package dashboard

import (
	"context"
	"strings"

	"pharmacy-dashboard/internal/api"
	"pharmacy-dashboard/models"
)

// Medicines fetches the inventory, optionally narrowed by a search term
// matching name or type.
func (d *Dashboard) Medicines(ctx context.Context, search string) ([]*models.Medicine, error) {
	all, err := d.client.GetMedicines(ctx)
	if err != nil {
		return nil, err
	}
	if search == "" {
		return all, nil
	}
	needle := strings.ToLower(search)
	var out []*models.Medicine
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.Type), needle) {
			out = append(out, m)
		}
	}
	return out, nil
}

// SaveMedicine creates or updates an inventory item depending on whether it
// already has a backend id.
func (d *Dashboard) SaveMedicine(ctx context.Context, m *models.Medicine) error {
	if m.ID == "" {
		return d.client.AddMedicine(ctx, m)
	}
	return d.client.UpdateMedicine(ctx, m)
}

// RemoveMedicine deletes an inventory item.
func (d *Dashboard) RemoveMedicine(ctx context.Context, id string) error {
	return d.client.DeleteMedicine(ctx, id)
}

// MarkMedicineOutOfStock flags an inventory item as out of stock.
func (d *Dashboard) MarkMedicineOutOfStock(ctx context.Context, id string) error {
	return d.client.MarkOutOfStock(ctx, id)
}

// SalesOverview fetches the sales report summary.
func (d *Dashboard) SalesOverview(ctx context.Context) (*api.SalesOverview, error) {
	return d.client.GetSalesOverview(ctx)
}
