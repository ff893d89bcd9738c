package types

import "strings"

// ShippingAddress is the destination snapshot carried on sessions and orders.
// Stored as jsonb; validation lives in the checkout service.
type ShippingAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

// IsZero reports whether no address has been collected yet.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Name) == "" &&
		strings.TrimSpace(a.Address1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Zip) == ""
}

// Lines renders the address as postal lines for operator checklists.
func (a ShippingAddress) Lines() []string {
	lines := []string{a.Name, a.Address1}
	if strings.TrimSpace(a.Address2) != "" {
		lines = append(lines, a.Address2)
	}
	lines = append(lines, a.City+", "+a.State+" "+a.Zip, a.Country)
	return lines
}
