package doordash

// Wire types for the getConsumerOrdersWithDetails GraphQL response.
// Field names mirror the query in client.go; anything the API may omit
// is a pointer or left as the zero value and resolved downstream.

// OrderSummary is one delivery/cart, possibly containing sub-orders from
// multiple participants in a group order.
type OrderSummary struct {
	ID          string     `json:"id"`
	OrderUUID   string     `json:"orderUuid"`
	CreatedAt   string     `json:"createdAt"`
	SubmittedAt string     `json:"submittedAt"`
	Store       Store      `json:"store"`
	Orders      []SubOrder `json:"orders"`
}

// OrderID resolves the canonical order identifier, preferring the UUID
// over the numeric id. Empty means the summary is malformed and should
// be skipped, never given a fabricated id.
func (s *OrderSummary) OrderID() string {
	if s.OrderUUID != "" {
		return s.OrderUUID
	}
	return s.ID
}

// Timestamp returns the best available order timestamp, preferring the
// submission time over the creation time. Empty when the API sent neither.
func (s *OrderSummary) Timestamp() string {
	if s.SubmittedAt != "" {
		return s.SubmittedAt
	}
	return s.CreatedAt
}

// Store identifies the restaurant an order was placed with.
type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubOrder is one participant's contribution to a group order.
type SubOrder struct {
	ID      string   `json:"id"`
	Creator *Creator `json:"creator"`
	Items   []Item   `json:"items"`
}

// Creator is the person who placed a sub-order. Either name field may be
// missing for deactivated accounts.
type Creator struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Item is a single menu item within a sub-order.
type Item struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Quantity            float64 `json:"quantity"`
	SpecialInstructions string  `json:"specialInstructions"`
	Extras              []Extra `json:"orderItemExtras"`
}

// Extra is a named modifier group on an item (e.g. "Protein").
type Extra struct {
	MenuItemExtraID string   `json:"menuItemExtraId"`
	Name            string   `json:"name"`
	Options         []Option `json:"orderItemExtraOptions"`
}

// Option is one selected value within an extra (e.g. "Steak").
type Option struct {
	MenuExtraOptionID string  `json:"menuExtraOptionId"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"`
	Quantity          float64 `json:"quantity"`
}
