package domain

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
)

const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionStores   = "stores"
	CollectionMail     = "mail"

	ProductTypeJersey = "jersey"
	ProductTypePlain  = "plain"

	// TaxRate is applied to the product price at checkout.
	TaxRate = 0.08
)

// Product is a catalog entry.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Type          string    `json:"type"`
	Description   string    `json:"description,omitempty"`
	FrontImageURL string    `json:"frontImageUrl,omitempty"`
	BackImageURL  string    `json:"backImageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Customizable reports whether the product accepts a name/number.
func (p Product) Customizable() bool {
	return p.Type == ProductTypeJersey
}

// Billing is the customer contact captured at checkout.
type Billing struct {
	CustomerName string `json:"customerName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

// Validate checks the required billing fields.
func (b Billing) Validate() error {
	required := []struct{ field, value string }{
		{"customerName", b.CustomerName},
		{"email", b.Email},
		{"phone", b.Phone},
		{"address", b.Address},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: billing %s is required", ErrInvalidInput, r.field)
		}
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return fmt.Errorf("%w: billing email %q", ErrInvalidInput, b.Email)
	}
	return nil
}

// FullAddress joins the non-empty address parts.
func (b Billing) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{b.Address, b.City, b.State, b.Zip} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// ProductRef is the product snapshot stored with an order.
type ProductRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Type  string  `json:"type"`
}

// Images holds the uploaded artifact URLs of an order.
type Images struct {
	BackURL  string `json:"backUrl,omitempty"`
	FrontURL string `json:"frontUrl,omitempty"`
}

// Totals is the priced summary of an order.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeTotals prices a single item, rounded to cents.
func ComputeTotals(price float64) Totals {
	tax := roundCents(price * TaxRate)
	return Totals{Subtotal: roundCents(price), Tax: tax, Total: roundCents(price + tax)}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Order aggregates what the customer bought.
type Order struct {
	ID            string         `json:"orderId"`
	Product       ProductRef     `json:"product"`
	Customization *Customization `json:"customization"`
	Billing       Billing        `json:"billing"`
	Images        Images         `json:"images"`
	Totals        Totals         `json:"totals"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// StoreEmail is a notification recipient of a store.
type StoreEmail struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
