// Package store defines the one operation contract both backing
// implementations (the local in-memory store and the remote Postgres store)
// satisfy. Callers above the router hold only this interface and never learn
// which variant is active.
package store

import (
	"context"
	"errors"

	"sakupos/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Store interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	AddProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	GetCart(ctx context.Context) ([]domain.CartItem, error)
	AddCartItem(ctx context.Context, productID string, qty int) ([]domain.CartItem, error)
	UpdateCartItem(ctx context.Context, productID string, req domain.CartItemUpdateRequest) ([]domain.CartItem, error)
	RemoveCartItem(ctx context.Context, productID string) ([]domain.CartItem, error)
	ClearCart(ctx context.Context) error

	// ProcessTransaction turns the current cart into a receipt and clears the
	// cart. An empty cart yields (nil, nil): a valid nothing-to-do outcome,
	// not a failure.
	ProcessTransaction(ctx context.Context, req domain.TransactionRequest) (*domain.Receipt, error)
	// AddManualReceipt backfills a sale that did not go through live checkout.
	AddManualReceipt(ctx context.Context, req domain.ManualReceiptRequest) (*domain.Receipt, error)
	GetReceipt(ctx context.Context, token string) (*domain.Receipt, error)
	// ListReceipts returns receipts newest first. A positive limit caps the
	// result; zero or negative means no cap.
	ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error)
}
