package domain

import (
	"strconv"
	"time"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CostCents     int64     `json:"cost_cents"`
	PriceCents    int64     `json:"price_cents"`
	Stock         int       `json:"stock"`
	Barcode       string    `json:"barcode,omitempty"`
	ShortCode     string    `json:"short_code,omitempty"`
	Category      string    `json:"category,omitempty"`
	TieredPricing bool      `json:"tiered_pricing"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name          string `json:"name"`
	CostCents     int64  `json:"cost_cents"`
	PriceCents    int64  `json:"price_cents"`
	Stock         int    `json:"stock"`
	Barcode       string `json:"barcode,omitempty"`
	ShortCode     string `json:"short_code,omitempty"`
	Category      string `json:"category,omitempty"`
	TieredPricing bool   `json:"tiered_pricing"`
}

type ProductUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	CostCents     *int64  `json:"cost_cents,omitempty"`
	PriceCents    *int64  `json:"price_cents,omitempty"`
	Stock         *int    `json:"stock,omitempty"`
	Barcode       *string `json:"barcode,omitempty"`
	ShortCode     *string `json:"short_code,omitempty"`
	Category      *string `json:"category,omitempty"`
	TieredPricing *bool   `json:"tiered_pricing,omitempty"`
}

// CartItem carries a snapshot of the product at the moment it entered the
// cart so later catalog edits never alter historical receipts.
type CartItem struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	CostCents       int64  `json:"cost_cents"`
	Qty             int    `json:"qty"`
	FinalPriceCents *int64 `json:"final_price_cents,omitempty"`
}

// LineTotal is the amount charged for the line: the final-price override when
// present (tiered pricing), unit price times quantity otherwise.
func (c CartItem) LineTotal() int64 {
	if c.FinalPriceCents != nil {
		return *c.FinalPriceCents
	}
	return c.PriceCents * int64(c.Qty)
}

// LineProfit is internal reporting data and must never reach a customer
// receipt.
func (c CartItem) LineProfit() int64 {
	return c.LineTotal() - c.CostCents*int64(c.Qty)
}

type CartItemUpdateRequest struct {
	Qty             *int   `json:"qty,omitempty"`
	FinalPriceCents *int64 `json:"final_price_cents,omitempty"`
}

// Receipt is immutable once created; corrections are new receipts.
type Receipt struct {
	Token         string     `json:"token"`
	Items         []CartItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCents    int64      `json:"total_cents"`
	ProfitCents   int64      `json:"profit_cents"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Manual        bool       `json:"manual"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TransactionRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
	DiscountCents int64  `json:"discount_cents"`
}

// ManualReceiptRequest backfills a sale that did not go through live
// checkout. Totals are recomputed by the store; the caller supplies the
// lines as they were sold.
type ManualReceiptRequest struct {
	Items         []CartItem `json:"items"`
	DiscountCents int64      `json:"discount_cents"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// FormatPrice renders an amount in cents as a rupiah-style display string,
// e.g. 12345 -> "Rp12.345".
func FormatPrice(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	digits := strconv.FormatInt(cents, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	if negative {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}
