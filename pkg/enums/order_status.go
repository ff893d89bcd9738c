package enums

// OrderStatus tracks the placement lifecycle of a retailer order. Pending
// covers both not-yet-attempted and queued-for-manual orders; the placement
// method column disambiguates.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPlaced  OrderStatus = "placed"
	OrderStatusFailed  OrderStatus = "failed"
)

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool {
	switch o {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the order can no longer transition.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusPlaced || o == OrderStatusFailed
}
