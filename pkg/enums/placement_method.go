package enums

import "fmt"

// PlacementMethod identifies the tier used to place an order with a
// retailer. Tiers degrade in order: api, headless, manual.
type PlacementMethod string

const (
	PlacementMethodAPI      PlacementMethod = "api"
	PlacementMethodHeadless PlacementMethod = "headless"
	PlacementMethodManual   PlacementMethod = "manual"
)

func (p PlacementMethod) String() string { return string(p) }

func (p PlacementMethod) IsValid() bool {
	switch p {
	case PlacementMethodAPI, PlacementMethodHeadless, PlacementMethodManual:
		return true
	}
	return false
}

// ParsePlacementMethod converts a configured tier name into a
// PlacementMethod.
func ParsePlacementMethod(value string) (PlacementMethod, error) {
	method := PlacementMethod(value)
	if !method.IsValid() {
		return "", fmt.Errorf("invalid placement method %q", value)
	}
	return method, nil
}
