package domain

// OrderStatus is the lifecycle state of an order. Orders are created by
// the storefront in Pending and only move along the edges returned by
// AllowedTargets.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusAccept    OrderStatus = "Accept"
	OrderStatusPacked    OrderStatus = "Packed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// AllStatuses lists every lifecycle state, in happy-path order with
// Cancelled last. Used to drive per-status tabs from a single fetch.
var AllStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccept,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusAccept, OrderStatusCancelled},
	OrderStatusAccept:    {OrderStatusPacked, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusPacked:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// IsValid reports whether s is one of the six known statuses.
func (s OrderStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition exists from s.
func (s OrderStatus) IsTerminal() bool {
	targets, ok := allowedTransitions[s]
	return ok && len(targets) == 0
}

// AllowedTargets returns the statuses reachable from s in one step.
func (s OrderStatus) AllowedTargets() []OrderStatus {
	return allowedTransitions[s]
}

// CanTransition reports whether moving from s to target is permitted.
// Same-state no-ops are not permitted.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image"`
}

// Order mirrors the backend's admin order payload. Field names follow
// the backend JSON, not this service's conventions.
type Order struct {
	ID            uint        `json:"id"`
	OrderID       string      `json:"order_id"`
	Customer      string      `json:"customer"`
	CustomerEmail string      `json:"customer_email"`
	Address       string      `json:"address"`
	Total         float64     `json:"total"`
	TotalQty      int         `json:"total_qty"`
	PaymentStatus string      `json:"payment_status"`
	Status        OrderStatus `json:"status"`
	ProductImage  string      `json:"product_image"`
	Date          string      `json:"date"` // preformatted display date from the backend
	Items         []OrderItem `json:"items"`
}
