package models

// ApprovalStatus is the admin approval state of a pharmacy profile.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Pharmacy is the authenticated pharmacy's own profile.
type Pharmacy struct {
	ID                string         `json:"_id"`
	Name              string         `json:"name"`
	OwnerName         string         `json:"ownerName,omitempty"`
	LicenseNumber     string         `json:"licenseNumber,omitempty"`
	Phone             string         `json:"phone"`
	Email             string         `json:"email"`
	Address           string         `json:"address,omitempty"`
	City              string         `json:"city,omitempty"`
	Woreda            string         `json:"woreda,omitempty"`
	Lat               float64        `json:"lat,omitempty"`
	Lng               float64        `json:"lng,omitempty"`
	DeliveryAvailable bool           `json:"deliveryAvailable"`
	Status            ApprovalStatus `json:"status"`
}

// ProfileComplete reports whether the onboarding fields required for
// approval have all been filled in.
func (p *Pharmacy) ProfileComplete() bool {
	return p.Name != "" && p.OwnerName != "" && p.LicenseNumber != "" &&
		p.City != "" && p.Woreda != ""
}
