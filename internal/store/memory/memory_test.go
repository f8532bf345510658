package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/store"
)

func addProduct(t *testing.T, s *Store, name string, cost, price int64, stock int) domain.Product {
	t.Helper()
	p, err := s.AddProduct(context.Background(), domain.ProductCreateRequest{
		Name:       name,
		CostCents:  cost,
		PriceCents: price,
		Stock:      stock,
	})
	require.NoError(t, err)
	return *p
}

func TestAddProductValidation(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.AddProduct(ctx, domain.ProductCreateRequest{Name: "  ", PriceCents: 100})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = s.AddProduct(ctx, domain.ProductCreateRequest{Name: "Pulpen", PriceCents: -1})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 10)

	price := int64(3500)
	updated, err := s.UpdateProduct(ctx, p.ID, domain.ProductUpdateRequest{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), updated.PriceCents)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), store.ErrNotFound)

	_, err = s.UpdateProduct(ctx, "missing", domain.ProductUpdateRequest{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddCartItemMergesQuantity(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 10)

	cart, err := s.AddCartItem(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart, 1)

	cart, err = s.AddCartItem(ctx, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart, 1, "re-adding merges, never duplicates")
	assert.Equal(t, 5, cart[0].Qty)
}

func TestUpdateCartItemQuantityZeroRemovesLine(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 10)

	_, err := s.AddCartItem(ctx, p.ID, 1)
	require.NoError(t, err)

	zero := 0
	cart, err := s.UpdateCartItem(ctx, p.ID, domain.CartItemUpdateRequest{Qty: &zero})
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestCartSnapshotSurvivesProductEdit(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 10)

	_, err := s.AddCartItem(ctx, p.ID, 1)
	require.NoError(t, err)

	price := int64(9900)
	_, err = s.UpdateProduct(ctx, p.ID, domain.ProductUpdateRequest{PriceCents: &price})
	require.NoError(t, err)

	cart, err := s.GetCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), cart[0].PriceCents, "cart keeps the snapshot price")
}

func TestProcessTransactionEmptyCart(t *testing.T) {
	s := New()
	ctx := context.Background()

	receipt, err := s.ProcessTransaction(ctx, domain.TransactionRequest{})
	require.NoError(t, err)
	assert.Nil(t, receipt, "empty cart is a valid nothing-to-do outcome")

	cart, err := s.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestProcessTransactionTotalsAndProfit(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 6000, 10000, 10)

	_, err := s.AddCartItem(ctx, p.ID, 2)
	require.NoError(t, err)

	receipt, err := s.ProcessTransaction(ctx, domain.TransactionRequest{PaymentMethod: "cash"})
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, int64(20000), receipt.SubtotalCents)
	assert.Equal(t, int64(20000), receipt.TotalCents)
	assert.Equal(t, int64(8000), receipt.ProfitCents)
	assert.False(t, receipt.Manual)
	assert.True(t, strings.HasPrefix(receipt.Token, "INV-"))

	cart, err := s.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, cart, "cart is cleared after checkout")

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, products[0].Stock)
}

func TestProcessTransactionDiscountInvariants(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 10)

	_, err := s.AddCartItem(ctx, p.ID, 1)
	require.NoError(t, err)

	_, err = s.ProcessTransaction(ctx, domain.TransactionRequest{DiscountCents: 5000})
	assert.ErrorIs(t, err, store.ErrInvalidInput, "discount above subtotal is rejected")

	receipt, err := s.ProcessTransaction(ctx, domain.TransactionRequest{DiscountCents: 1000})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, receipt.SubtotalCents-receipt.DiscountCents, receipt.TotalCents)
}

func TestFinalPriceOverrideDrivesTotals(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Fotokopi A4", 200, 500, 0)

	_, err := s.AddCartItem(ctx, p.ID, 40)
	require.NoError(t, err)

	final := int64(15000)
	_, err = s.UpdateCartItem(ctx, p.ID, domain.CartItemUpdateRequest{FinalPriceCents: &final})
	require.NoError(t, err)

	receipt, err := s.ProcessTransaction(ctx, domain.TransactionRequest{})
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, int64(15000), receipt.SubtotalCents, "override replaces unit price x qty")
	// Profit uses the override in place of the sell price for the line.
	assert.Equal(t, int64(15000-200*40), receipt.ProfitCents)
}

func TestTokensAreUniqueAndSequential(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 100)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		_, err := s.AddCartItem(ctx, p.ID, 1)
		require.NoError(t, err)
		receipt, err := s.ProcessTransaction(ctx, domain.TransactionRequest{})
		require.NoError(t, err)
		require.NotNil(t, receipt)
		assert.False(t, seen[receipt.Token], "token %s reissued", receipt.Token)
		seen[receipt.Token] = true
	}
}

func TestManualReceipt(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.AddManualReceipt(ctx, domain.ManualReceiptRequest{})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	when := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	receipt, err := s.AddManualReceipt(ctx, domain.ManualReceiptRequest{
		Items: []domain.CartItem{
			{ProductID: "ad-hoc", Name: "Jilid Spiral", PriceCents: 8000, CostCents: 3000, Qty: 1},
		},
		PaymentMethod: "cash",
		CreatedAt:     &when,
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.True(t, receipt.Manual)
	assert.Equal(t, "MAN-1090725", receipt.Token)
	assert.Equal(t, int64(8000), receipt.TotalCents)
}

func TestReceiptImmutability(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := addProduct(t, s, "Pulpen", 1500, 3000, 10)

	_, err := s.AddCartItem(ctx, p.ID, 1)
	require.NoError(t, err)
	receipt, err := s.ProcessTransaction(ctx, domain.TransactionRequest{})
	require.NoError(t, err)

	// Mutating the returned copy must not touch the stored receipt.
	receipt.Items[0].Name = "tampered"
	receipt.TotalCents = 0

	stored, err := s.GetReceipt(ctx, receipt.Token)
	require.NoError(t, err)
	assert.Equal(t, "Pulpen", stored.Items[0].Name)
	assert.Equal(t, int64(3000), stored.TotalCents)
}

func TestListReceiptsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := time.Date(2025, time.July, 8, 9, 0, 0, 0, time.UTC)
	second := time.Date(2025, time.July, 9, 9, 0, 0, 0, time.UTC)
	for _, when := range []time.Time{first, second} {
		w := when
		_, err := s.AddManualReceipt(ctx, domain.ManualReceiptRequest{
			Items:     []domain.CartItem{{ProductID: "x", Name: "Item", PriceCents: 100, Qty: 1}},
			CreatedAt: &w,
		})
		require.NoError(t, err)
	}

	receipts, err := s.ListReceipts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].CreatedAt.After(receipts[1].CreatedAt))
}

func TestListReceiptsLimitSemantics(t *testing.T) {
	s := New()
	ctx := context.Background()

	when := time.Date(2025, time.July, 9, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 250; i++ {
		w := when.Add(time.Duration(i) * time.Second)
		_, err := s.AddManualReceipt(ctx, domain.ManualReceiptRequest{
			Items:     []domain.CartItem{{ProductID: "x", Name: "Item", PriceCents: 100, Qty: 1}},
			CreatedAt: &w,
		})
		require.NoError(t, err)
	}

	// Non-positive limit means no cap: every stored receipt comes back.
	all, err := s.ListReceipts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 250)

	capped, err := s.ListReceipts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, capped, 10)
}

func TestSeededCatalog(t *testing.T) {
	s := NewSeeded()
	products, err := s.ListProducts(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	var tiered bool
	for _, p := range products {
		if p.TieredPricing {
			tiered = true
		}
	}
	assert.True(t, tiered, "seed includes a tiered-pricing service item")
}
