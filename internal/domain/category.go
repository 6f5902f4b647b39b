package domain

// Category groups products for filtering
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// Tag is a colored merchandising marker such as "Nuevo" or "Oferta"
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Color string `json:"color"`
}

// TagPatch carries a partial tag update; nil fields are left untouched
type TagPatch struct {
	Name  *string `json:"nombre,omitempty"`
	Color *string `json:"color,omitempty"`
}
