// Package router selects which backing store serves each operation: the
// remote synced store while an authenticated session is present, the local
// store otherwise. Callers hold only the store.Store interface and never
// branch on the active variant.
package router

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/store"
)

// SessionSource reports whether an authenticated session is present.
type SessionSource interface {
	Authenticated() bool
}

// Router is itself a store.Store. Switching is a hard cutover: no
// reconciliation runs between the two sources, and the in-progress cart of
// the source being left behind is discarded so a later flip back never
// resurrects a stale cart.
type Router struct {
	local   store.Store
	remote  store.Store
	session SessionSource
	logger  zerolog.Logger

	mu         sync.Mutex
	remoteLast bool
}

func New(local store.Store, remote store.Store, session SessionSource, logger zerolog.Logger) *Router {
	return &Router{
		local:   local,
		remote:  remote,
		session: session,
		logger:  logger.With().Str("component", "router").Logger(),
	}
}

// active resolves the current source and applies the cutover policy when the
// selection changed since the last call.
func (r *Router) active(ctx context.Context) store.Store {
	useRemote := r.remote != nil && r.session.Authenticated()

	r.mu.Lock()
	switched := useRemote != r.remoteLast
	r.remoteLast = useRemote
	r.mu.Unlock()

	if switched {
		previous := r.local
		name := "local"
		if !useRemote {
			previous = r.remote
			name = "remote"
		}
		if previous != nil {
			if err := previous.ClearCart(ctx); err != nil {
				r.logger.Warn().Err(err).Str("source", name).Msg("discarding inactive cart failed")
			}
		}
		target := "local"
		if useRemote {
			target = "remote"
		}
		r.logger.Info().Str("source", target).Msg("data source switched")
	}

	if useRemote {
		return r.remote
	}
	return r.local
}

// FormatPrice is the display helper exposed alongside the store contract.
func (r *Router) FormatPrice(cents int64) string {
	return domain.FormatPrice(cents)
}

func (r *Router) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return r.active(ctx).ListProducts(ctx)
}

func (r *Router) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	return r.active(ctx).AddProduct(ctx, req)
}

func (r *Router) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	return r.active(ctx).UpdateProduct(ctx, id, req)
}

func (r *Router) DeleteProduct(ctx context.Context, id string) error {
	return r.active(ctx).DeleteProduct(ctx, id)
}

func (r *Router) GetCart(ctx context.Context) ([]domain.CartItem, error) {
	return r.active(ctx).GetCart(ctx)
}

func (r *Router) AddCartItem(ctx context.Context, productID string, qty int) ([]domain.CartItem, error) {
	return r.active(ctx).AddCartItem(ctx, productID, qty)
}

func (r *Router) UpdateCartItem(ctx context.Context, productID string, req domain.CartItemUpdateRequest) ([]domain.CartItem, error) {
	return r.active(ctx).UpdateCartItem(ctx, productID, req)
}

func (r *Router) RemoveCartItem(ctx context.Context, productID string) ([]domain.CartItem, error) {
	return r.active(ctx).RemoveCartItem(ctx, productID)
}

func (r *Router) ClearCart(ctx context.Context) error {
	return r.active(ctx).ClearCart(ctx)
}

func (r *Router) ProcessTransaction(ctx context.Context, req domain.TransactionRequest) (*domain.Receipt, error) {
	// A remote failure propagates as-is; falling back to local here would
	// silently fork the data between the two sources.
	return r.active(ctx).ProcessTransaction(ctx, req)
}

func (r *Router) AddManualReceipt(ctx context.Context, req domain.ManualReceiptRequest) (*domain.Receipt, error) {
	return r.active(ctx).AddManualReceipt(ctx, req)
}

func (r *Router) GetReceipt(ctx context.Context, token string) (*domain.Receipt, error) {
	return r.active(ctx).GetReceipt(ctx, token)
}

func (r *Router) ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error) {
	return r.active(ctx).ListReceipts(ctx, limit)
}
