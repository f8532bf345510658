// Package memory is the local store: the device-only backing implementation
// used whenever no authenticated session is present.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/receiptid"
	"sakupos/backend/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	cart     []domain.CartItem
	receipts []domain.Receipt
	// counters tracks the per-day receipt sequence, keyed by the token's
	// DDMMYY date. Shared across live and manual prefixes so a day's tokens
	// never collide.
	counters map[string]int
}

func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		counters: make(map[string]int),
	}
}

// NewSeeded returns a store preloaded with a small demo catalog.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "Pulpen Hitam", CostCents: 1500, PriceCents: 3000, Stock: 120, Barcode: "8991002101", ShortCode: "PLP", Category: "alat tulis"},
		{Name: "Buku Tulis 38lbr", CostCents: 2800, PriceCents: 5000, Stock: 80, Barcode: "8991002102", ShortCode: "BKT", Category: "alat tulis"},
		{Name: "Kertas HVS A4 1rim", CostCents: 42000, PriceCents: 55000, Stock: 25, Barcode: "8991002103", Category: "kertas"},
		{Name: "Amplop Putih", CostCents: 200, PriceCents: 500, Stock: 300, ShortCode: "AMP", Category: "kertas"},
		{Name: "Fotokopi A4", CostCents: 200, PriceCents: 500, Stock: 0, ShortCode: "FC", Category: "jasa", TieredPricing: true},
		{Name: "Laminating", CostCents: 1800, PriceCents: 4000, Stock: 0, ShortCode: "LAM", Category: "jasa", TieredPricing: true},
	}
	for _, p := range seed {
		p.ID = uuid.NewString()
		p.CreatedAt = now
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) AddProduct(_ context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CostCents < 0 || req.PriceCents < 0 || req.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product := domain.Product{
		ID:            uuid.NewString(),
		Name:          req.Name,
		CostCents:     req.CostCents,
		PriceCents:    req.PriceCents,
		Stock:         req.Stock,
		Barcode:       strings.TrimSpace(req.Barcode),
		ShortCode:     strings.TrimSpace(req.ShortCode),
		Category:      strings.TrimSpace(req.Category),
		TieredPricing: req.TieredPricing,
		CreatedAt:     time.Now().UTC(),
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, store.ErrInvalidInput
		}
		product.Name = name
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product.CostCents = *req.CostCents
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, store.ErrInvalidInput
		}
		product.Stock = *req.Stock
	}
	if req.Barcode != nil {
		product.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.ShortCode != nil {
		product.ShortCode = strings.TrimSpace(*req.ShortCode)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.TieredPricing != nil {
		product.TieredPricing = *req.TieredPricing
	}

	s.products[id] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	// Cart lines keep their snapshot; deleting the catalog entry never
	// rewrites an open cart or a historical receipt.
	delete(s.products, id)
	return nil
}

func (s *Store) GetCart(_ context.Context) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCart(s.cart), nil
}

func (s *Store) AddCartItem(_ context.Context, productID string, qty int) ([]domain.CartItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Re-adding a product merges quantity instead of duplicating the line.
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart[i].Qty += qty
			return cloneCart(s.cart), nil
		}
	}

	s.cart = append(s.cart, domain.CartItem{
		ProductID:  product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		CostCents:  product.CostCents,
		Qty:        qty,
	})
	return cloneCart(s.cart), nil
}

func (s *Store) UpdateCartItem(_ context.Context, productID string, req domain.CartItemUpdateRequest) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, store.ErrNotFound
	}

	if req.Qty != nil {
		if *req.Qty < 1 {
			// Dropping below one unit removes the line, never a
			// zero-quantity entry.
			s.cart = slices.Delete(s.cart, idx, idx+1)
			return cloneCart(s.cart), nil
		}
		s.cart[idx].Qty = *req.Qty
	}
	if req.FinalPriceCents != nil {
		if *req.FinalPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		final := *req.FinalPriceCents
		s.cart[idx].FinalPriceCents = &final
	}
	return cloneCart(s.cart), nil
}

func (s *Store) RemoveCartItem(_ context.Context, productID string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart = slices.Delete(s.cart, i, i+1)
			return cloneCart(s.cart), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ClearCart(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	return nil
}

func (s *Store) ProcessTransaction(_ context.Context, req domain.TransactionRequest) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return nil, nil
	}

	items := cloneCart(s.cart)
	receipt, err := buildReceipt(items, req.DiscountCents, req.PaymentMethod, false, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	token, err := s.nextTokenLocked(receiptid.SalePrefix, receipt.CreatedAt)
	if err != nil {
		return nil, err
	}
	receipt.Token = token

	for _, item := range items {
		product, exists := s.products[item.ProductID]
		if !exists {
			continue
		}
		product.Stock -= item.Qty
		if product.Stock < 0 {
			product.Stock = 0
		}
		s.products[product.ID] = product
	}

	s.receipts = append(s.receipts, *receipt)
	s.cart = nil

	created := cloneReceipt(*receipt)
	return &created, nil
}

func (s *Store) AddManualReceipt(_ context.Context, req domain.ManualReceiptRequest) (*domain.Receipt, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	createdAt := time.Now().UTC()
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, err := buildReceipt(cloneCart(req.Items), req.DiscountCents, req.PaymentMethod, true, createdAt)
	if err != nil {
		return nil, err
	}

	token, err := s.nextTokenLocked(receiptid.ManualPrefix, createdAt)
	if err != nil {
		return nil, err
	}
	receipt.Token = token

	s.receipts = append(s.receipts, *receipt)
	created := cloneReceipt(*receipt)
	return &created, nil
}

func (s *Store) GetReceipt(_ context.Context, token string) (*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.receipts {
		if s.receipts[i].Token == token {
			found := cloneReceipt(s.receipts[i])
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListReceipts(_ context.Context, limit int) ([]domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		result = append(result, cloneReceipt(r))
	}
	slices.SortFunc(result, func(a, b domain.Receipt) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.Token, a.Token)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// nextTokenLocked issues the next token for the given day. Counters are per
// calendar day and shared across prefixes, so tokens stay unique within the
// store and are never reused across days (the date suffix differs).
func (s *Store) nextTokenLocked(prefix string, at time.Time) (string, error) {
	day := at.Format("020106")
	s.counters[day]++
	return receiptid.Encode(prefix, s.counters[day], at)
}

// buildReceipt computes totals for a line snapshot and enforces the receipt
// invariants: total = subtotal - discount and 0 <= discount <= subtotal.
func buildReceipt(items []domain.CartItem, discount int64, paymentMethod string, manual bool, at time.Time) (*domain.Receipt, error) {
	var subtotal, profit int64
	for _, item := range items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidInput
		}
		subtotal += item.LineTotal()
		profit += item.LineProfit()
	}
	if discount < 0 || discount > subtotal {
		return nil, store.ErrInvalidInput
	}

	return &domain.Receipt{
		Items:         items,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		ProfitCents:   profit,
		PaymentMethod: strings.TrimSpace(paymentMethod),
		Manual:        manual,
		CreatedAt:     at,
	}, nil
}

func cloneCart(cart []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(cart))
	copy(out, cart)
	for i := range out {
		if out[i].FinalPriceCents != nil {
			final := *out[i].FinalPriceCents
			out[i].FinalPriceCents = &final
		}
	}
	return out
}

func cloneReceipt(r domain.Receipt) domain.Receipt {
	r.Items = cloneCart(r.Items)
	return r
}
