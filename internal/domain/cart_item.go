package domain

// CartItem is a product selected for ordering. Identity is the product id.
type CartItem struct {
	Product
	Quantity int `json:"cantidad"`
}
