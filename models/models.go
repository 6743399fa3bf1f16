package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Price status values reported when a product is added.
const (
	PriceStatusResolved       = "resolved"
	PriceStatusManual         = "manual"
	PriceStatusManualRequired = "manual_required"
)

// Editable product fields.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldSource      = "source"
	FieldURL         = "url"
	FieldPrice       = "price"
)

// EditableFields lists the fields accepted by a single-field edit.
var EditableFields = []string{FieldName, FieldDescription, FieldSource, FieldURL, FieldPrice}

// Product is a tracked product and its last known price.
type Product struct {
	ID          int             `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Source      string          `json:"source" db:"source"`
	URL         string          `json:"url" db:"url"`
	Price       sql.NullFloat64 `json:"price" db:"price"`
	LastUpdated time.Time       `json:"last_updated" db:"last_updated"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// HasPrice reports whether the product has a known price.
func (p *Product) HasPrice() bool {
	return p.Price.Valid
}

// MarshalJSON renders a missing price as null.
func (p *Product) MarshalJSON() ([]byte, error) {
	type Alias Product
	var price *float64
	if p.Price.Valid {
		v := p.Price.Float64
		price = &v
	}
	return json.Marshal(&struct {
		*Alias
		Price *float64 `json:"price"`
	}{
		Alias: (*Alias)(p),
		Price: price,
	})
}

// PriceHistory is one recorded price of a product.
type PriceHistory struct {
	ID        int       `json:"id" db:"id"`
	ProductID int       `json:"product_id" db:"product_id"`
	Price     float64   `json:"price" db:"price"`
	Strategy  string    `json:"strategy" db:"strategy"`
	CheckedAt time.Time `json:"checked_at" db:"checked_at"`
}

// AddProductRequest is the body of an add product call. Price is used only
// when no price could be resolved from the page.
type AddProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	Price       *float64 `json:"price,omitempty"`
}

// Validate checks the required fields.
func (r *AddProductRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if r.Price != nil && *r.Price < 0 {
		return fmt.Errorf("price must be non-negative")
	}
	return nil
}

// AddProductResponse reports the stored product and how its price was set.
type AddProductResponse struct {
	Product     *Product `json:"product"`
	PriceStatus string   `json:"price_status"`
	Strategy    string   `json:"strategy,omitempty"`
}

// EditProductRequest changes one field of a product.
type EditProductRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Validate checks the field name and, for prices, that the value is a
// non-negative number.
func (r *EditProductRequest) Validate() error {
	known := false
	for _, f := range EditableFields {
		if r.Field == f {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("field must be one of %s", strings.Join(EditableFields, ", "))
	}
	if r.Field == FieldPrice {
		if _, err := r.PriceValue(); err != nil {
			return err
		}
	}
	if r.Field == FieldName || r.Field == FieldURL {
		if strings.TrimSpace(r.Value) == "" {
			return fmt.Errorf("%s must not be empty", r.Field)
		}
	}
	return nil
}

// PriceValue parses Value as a price.
func (r *EditProductRequest) PriceValue() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid price %q: must be a number", r.Value)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid price %q: must be non-negative", r.Value)
	}
	return v, nil
}

// RefreshRequest selects products to refresh. An empty list refreshes all.
type RefreshRequest struct {
	IDs []int `json:"ids"`
}

// RefreshResult is the outcome of refreshing one product.
type RefreshResult struct {
	ProductID int      `json:"product_id"`
	Name      string   `json:"name"`
	Updated   bool     `json:"updated"`
	Price     *float64 `json:"price,omitempty"`
	Strategy  string   `json:"strategy"`
}

// RefreshSummary is the outcome of a bulk refresh.
type RefreshSummary struct {
	Updated int             `json:"updated"`
	Total   int             `json:"total"`
	Results []RefreshResult `json:"results"`
}

// ExtractRequest asks for a one-off price resolution without storing anything.
type ExtractRequest struct {
	URL         string `json:"url"`
	ProductName string `json:"product_name"`
	HTML        string `json:"html,omitempty"`
}
