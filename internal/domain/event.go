package domain

// EventType identifies a commerce event forwarded to the UGC service.
type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventAddToCart EventType = "add:cart"
	EventCheckout  EventType = "conversion:checkout"
)

// CartItem is one line of a checkout event's cart contents.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price,omitempty"`
}

// CommerceEvent is one storefront event (add-to-cart or checkout)
// queued for forwarding.
type CommerceEvent struct {
	Type      EventType  `json:"type"`
	ProductID string     `json:"product_id,omitempty"`
	Quantity  int        `json:"quantity,omitempty"`
	Currency  string     `json:"currency,omitempty"`
	OrderID   string     `json:"order_id,omitempty"`
	Cart      []CartItem `json:"cart,omitempty"`
	UserRef   string     `json:"user_ref,omitempty"`
	Timestamp int64      `json:"timestamp"`
}
