package types

import "strings"

// Address is the snapshot stored on an order at creation time. Orders keep a
// copy rather than a reference so later edits to a saved address never alter
// historical orders.
type Address struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Pincode      string  `json:"pincode"`
	Country      string  `json:"country"`
}

// MissingFields returns the required subfields that are empty.
func (a Address) MissingFields() []string {
	var missing []string
	checks := []struct {
		field string
		value string
	}{
		{"name", a.Name},
		{"phone", a.Phone},
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			missing = append(missing, check.field)
		}
	}
	return missing
}
