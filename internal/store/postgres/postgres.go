// Package postgres is the remote store: the cloud-synced backing
// implementation used while an authenticated session is present. Mutations
// publish change events on the realtime feed so other devices on the same
// account can refresh.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/realtime"
	"sakupos/backend/internal/receiptid"
	"sakupos/backend/internal/store"
)

type Store struct {
	db     *sql.DB
	feed   realtime.Publisher
	logger zerolog.Logger

	// The cart stays device-local even in remote mode: only catalog and
	// receipts sync between devices. mu guards cart.
	mu   sync.Mutex
	cart []domain.CartItem
}

func New(ctx context.Context, databaseURL string, feed realtime.Publisher, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if feed == nil {
		feed = realtime.NoopPublisher{}
	}
	s := &Store{
		db:     db,
		feed:   feed,
		logger: logger.With().Str("component", "postgres-store").Logger(),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cost_cents BIGINT NOT NULL DEFAULT 0,
			price_cents BIGINT NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			barcode TEXT NOT NULL DEFAULT '',
			short_code TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tiered_pricing BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS receipts (
			token TEXT PRIMARY KEY,
			subtotal_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL,
			total_cents BIGINT NOT NULL,
			profit_cents BIGINT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			manual BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS receipt_items (
			token TEXT NOT NULL REFERENCES receipts(token),
			position INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			name TEXT NOT NULL,
			price_cents BIGINT NOT NULL,
			cost_cents BIGINT NOT NULL,
			qty INTEGER NOT NULL,
			final_price_cents BIGINT,
			PRIMARY KEY (token, position)
		)`,
		`CREATE TABLE IF NOT EXISTS receipt_counters (
			day TEXT PRIMARY KEY,
			counter INTEGER NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) publish(entity, action, id string) {
	err := s.feed.Publish(context.Background(), realtime.Event{
		Entity: entity,
		Action: action,
		ID:     id,
		At:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("entity", entity).Str("action", action).Msg("change event not published")
	}
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost_cents, price_cents, stock, barcode, short_code, category, tiered_pricing, created_at
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CostCents, &p.PriceCents, &p.Stock, &p.Barcode, &p.ShortCode, &p.Category, &p.TieredPricing, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CostCents < 0 || req.PriceCents < 0 || req.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, cost_cents, price_cents, stock, barcode, short_code, category, tiered_pricing, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
	`, product.ID, product.Name, product.CostCents, product.PriceCents, product.Stock,
		product.Barcode, product.ShortCode, product.Category, product.TieredPricing, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	s.publish(realtime.EntityProduct, realtime.ActionCreated, product.ID)
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cost_cents, price_cents, stock, barcode, short_code, category, tiered_pricing, created_at
		FROM products WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.CostCents, &product.PriceCents, &product.Stock,
		&product.Barcode, &product.ShortCode, &product.Category, &product.TieredPricing, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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

	_, err = s.db.ExecContext(ctx, `
		UPDATE products
		SET name=$2, cost_cents=$3, price_cents=$4, stock=$5, barcode=$6, short_code=$7, category=$8, tiered_pricing=$9, updated_at=now()
		WHERE id=$1
	`, product.ID, product.Name, product.CostCents, product.PriceCents, product.Stock,
		product.Barcode, product.ShortCode, product.Category, product.TieredPricing)
	if err != nil {
		return nil, err
	}

	s.publish(realtime.EntityProduct, realtime.ActionUpdated, product.ID)
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	s.publish(realtime.EntityProduct, realtime.ActionDeleted, id)
	return nil
}

func (s *Store) GetCart(_ context.Context) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCart(s.cart), nil
}

func (s *Store) AddCartItem(ctx context.Context, productID string, qty int) ([]domain.CartItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	var name string
	var priceCents, costCents int64
	err := s.db.QueryRowContext(ctx, `
		SELECT name, price_cents, cost_cents FROM products WHERE id = $1
	`, productID).Scan(&name, &priceCents, &costCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart[i].Qty += qty
			return cloneCart(s.cart), nil
		}
	}
	s.cart = append(s.cart, domain.CartItem{
		ProductID:  productID,
		Name:       name,
		PriceCents: priceCents,
		CostCents:  costCents,
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
			s.cart = append(s.cart[:idx], s.cart[idx+1:]...)
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
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
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

func (s *Store) ProcessTransaction(ctx context.Context, req domain.TransactionRequest) (*domain.Receipt, error) {
	s.mu.Lock()
	items := cloneCart(s.cart)
	s.mu.Unlock()

	if len(items) == 0 {
		return nil, nil
	}

	receipt, err := buildReceipt(items, req.DiscountCents, req.PaymentMethod, false, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.persistReceipt(ctx, receipt, receiptid.SalePrefix, true); err != nil {
		return nil, err
	}

	// The mutex was released while the transaction committed, so only the
	// snapshotted lines are cleared; anything added meanwhile stays in the
	// cart for the next checkout.
	s.mu.Lock()
	s.cart = pruneSold(s.cart, items)
	s.mu.Unlock()

	s.publish(realtime.EntityReceipt, realtime.ActionCreated, receipt.Token)
	created := *receipt
	return &created, nil
}

func (s *Store) AddManualReceipt(ctx context.Context, req domain.ManualReceiptRequest) (*domain.Receipt, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	createdAt := time.Now().UTC()
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}

	receipt, err := buildReceipt(cloneCart(req.Items), req.DiscountCents, req.PaymentMethod, true, createdAt)
	if err != nil {
		return nil, err
	}

	if err := s.persistReceipt(ctx, receipt, receiptid.ManualPrefix, false); err != nil {
		return nil, err
	}

	s.publish(realtime.EntityReceipt, realtime.ActionCreated, receipt.Token)
	created := *receipt
	return &created, nil
}

// persistReceipt assigns the next day-sequence token and writes the receipt,
// its lines and the stock decrement in one transaction.
func (s *Store) persistReceipt(ctx context.Context, receipt *domain.Receipt, prefix string, decrementStock bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	day := receipt.CreatedAt.Format("020106")
	var counter int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO receipt_counters (day, counter) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = receipt_counters.counter + 1
		RETURNING counter
	`, day).Scan(&counter)
	if err != nil {
		return err
	}

	token, err := receiptid.Encode(prefix, counter, receipt.CreatedAt)
	if err != nil {
		return err
	}
	receipt.Token = token

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (token, subtotal_cents, discount_cents, total_cents, profit_cents, payment_method, manual, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, receipt.Token, receipt.SubtotalCents, receipt.DiscountCents, receipt.TotalCents,
		receipt.ProfitCents, receipt.PaymentMethod, receipt.Manual, receipt.CreatedAt)
	if err != nil {
		return err
	}

	for i, item := range receipt.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO receipt_items (token, position, product_id, name, price_cents, cost_cents, qty, final_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, receipt.Token, i, item.ProductID, item.Name, item.PriceCents, item.CostCents, item.Qty, item.FinalPriceCents)
		if err != nil {
			return err
		}
		if decrementStock {
			// Stock never persists negative; concurrent sales clamp at zero.
			_, err = tx.ExecContext(ctx, `
				UPDATE products SET stock = GREATEST(0, stock - $2), updated_at = now() WHERE id = $1
			`, item.ProductID, item.Qty)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *Store) GetReceipt(ctx context.Context, token string) (*domain.Receipt, error) {
	var r domain.Receipt
	err := s.db.QueryRowContext(ctx, `
		SELECT token, subtotal_cents, discount_cents, total_cents, profit_cents, payment_method, manual, created_at
		FROM receipts WHERE token = $1
	`, token).Scan(&r.Token, &r.SubtotalCents, &r.DiscountCents, &r.TotalCents, &r.ProfitCents, &r.PaymentMethod, &r.Manual, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.receiptItems(ctx, token)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return &r, nil
}

func (s *Store) ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error) {
	query := `
		SELECT token, subtotal_cents, discount_cents, total_cents, profit_cents, payment_method, manual, created_at
		FROM receipts
		ORDER BY created_at DESC, token DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := make([]domain.Receipt, 0, 64)
	for rows.Next() {
		var r domain.Receipt
		if err := rows.Scan(&r.Token, &r.SubtotalCents, &r.DiscountCents, &r.TotalCents, &r.ProfitCents, &r.PaymentMethod, &r.Manual, &r.CreatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range receipts {
		items, err := s.receiptItems(ctx, receipts[i].Token)
		if err != nil {
			return nil, err
		}
		receipts[i].Items = items
	}
	return receipts, nil
}

func (s *Store) receiptItems(ctx context.Context, token string) ([]domain.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price_cents, cost_cents, qty, final_price_cents
		FROM receipt_items
		WHERE token = $1
		ORDER BY position
	`, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0, 8)
	for rows.Next() {
		var item domain.CartItem
		var final sql.NullInt64
		if err := rows.Scan(&item.ProductID, &item.Name, &item.PriceCents, &item.CostCents, &item.Qty, &final); err != nil {
			return nil, err
		}
		if final.Valid {
			v := final.Int64
			item.FinalPriceCents = &v
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

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

// pruneSold subtracts the quantities a checkout consumed from the cart.
// Lines fully covered by the sale disappear; quantity added to a line while
// the checkout committed survives as the remainder. A partially sold line
// loses its final-price override because the override priced the snapshot
// that was sold, not the remainder.
func pruneSold(cart, sold []domain.CartItem) []domain.CartItem {
	soldQty := make(map[string]int, len(sold))
	for _, item := range sold {
		soldQty[item.ProductID] += item.Qty
	}

	out := make([]domain.CartItem, 0, len(cart))
	for _, line := range cart {
		consumed := soldQty[line.ProductID]
		remaining := line.Qty - consumed
		if remaining <= 0 {
			continue
		}
		line.Qty = remaining
		if consumed > 0 {
			line.FinalPriceCents = nil
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil
	}
	return out
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
