package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ProductState is the lifecycle state of a catalog product
type ProductState string

func (s ProductState) String() string {
	return string(s)
}

const (
	ProductStateActive       ProductState = "activo"
	ProductStateDiscontinued ProductState = "descontinuado"
)

// CategoryRef is the denormalized category carried inside a product payload.
// The backend sends it either as an object or as a bare name.
type CategoryRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"nombre"`
}

func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*r = CategoryRef{Name: name}
		return nil
	}
	type plain CategoryRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = CategoryRef(p)
	return nil
}

// TagRef is the denormalized tag carried inside a product payload
type TagRef struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"nombre"`
	Color string `json:"color,omitempty"`
}

func (r *TagRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*r = TagRef{Name: name}
		return nil
	}
	type plain TagRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = TagRef(p)
	return nil
}

// Product is the canonical catalog product. Category and tag are always
// referenced through the nullable ids; the refs are display-only.
type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"nombre"`
	Description string       `json:"descripcion,omitempty"`
	Price       float64      `json:"precio"`
	CategoryID  *int64       `json:"categoriaId,omitempty"`
	Category    *CategoryRef `json:"categoria,omitempty"`
	TagID       *int64       `json:"etiquetaId,omitempty"`
	Tag         *TagRef      `json:"etiqueta,omitempty"`
	ImageURL    string       `json:"imagenUrl,omitempty"`
	SpecFileURL string       `json:"specFileUrl,omitempty"`
	State       ProductState `json:"estado,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}

// Normalize collapses the shapes seen on the wire into the canonical one:
// ids are filled from the nested refs when missing and blank refs are dropped.
func (p *Product) Normalize() {
	if p.Category != nil {
		if p.CategoryID == nil && p.Category.ID > 0 {
			id := p.Category.ID
			p.CategoryID = &id
		}
		if p.Category.ID == 0 && strings.TrimSpace(p.Category.Name) == "" {
			p.Category = nil
		}
	}
	if p.Tag != nil {
		if p.TagID == nil && p.Tag.ID > 0 {
			id := p.Tag.ID
			p.TagID = &id
		}
		if p.Tag.ID == 0 && strings.TrimSpace(p.Tag.Name) == "" {
			p.Tag = nil
		}
	}
	if p.CategoryID != nil && *p.CategoryID == 0 {
		p.CategoryID = nil
	}
	if p.TagID != nil && *p.TagID == 0 {
		p.TagID = nil
	}
}

// CategoryName returns the display name of the product category, if any
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// InCategory reports whether the product references the given category id
func (p Product) InCategory(id int64) bool {
	return p.CategoryID != nil && *p.CategoryID == id
}

// ProductDraft is the writable part of a product sent on create and update
type ProductDraft struct {
	Name        string       `json:"nombre"`
	Description string       `json:"descripcion"`
	Price       float64      `json:"precio"`
	CategoryID  *int64       `json:"categoriaId,omitempty"`
	TagID       *int64       `json:"etiquetaId,omitempty"`
	ImageURL    string       `json:"imagenUrl,omitempty"`
	SpecFileURL string       `json:"specFileUrl,omitempty"`
	State       ProductState `json:"estado,omitempty"`
}

// DraftOf returns the writable fields of an existing product
func DraftOf(p Product) ProductDraft {
	return ProductDraft{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		TagID:       p.TagID,
		ImageURL:    p.ImageURL,
		SpecFileURL: p.SpecFileURL,
		State:       p.State,
	}
}
