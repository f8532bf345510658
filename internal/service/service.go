// Package service orchestrates the store contract, the receipt printing
// pipeline and reporting for the HTTP layer.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/printer"
	"sakupos/backend/internal/report"
	"sakupos/backend/internal/store"
)

type Service struct {
	store     store.Store
	printers  *printer.Manager
	formatter *printer.Formatter
	logger    zerolog.Logger
}

func New(st store.Store, printers *printer.Manager, formatter *printer.Formatter, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		printers:  printers,
		formatter: formatter,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	product, err := s.store.AddProduct(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("product_id", product.ID).Str("name", product.Name).Msg("product added")
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	return s.store.UpdateProduct(ctx, id, req)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.store.DeleteProduct(ctx, id)
}

func (s *Service) GetCart(ctx context.Context) ([]domain.CartItem, error) {
	return s.store.GetCart(ctx)
}

func (s *Service) AddCartItem(ctx context.Context, productID string, qty int) ([]domain.CartItem, error) {
	return s.store.AddCartItem(ctx, productID, qty)
}

func (s *Service) UpdateCartItem(ctx context.Context, productID string, req domain.CartItemUpdateRequest) ([]domain.CartItem, error) {
	return s.store.UpdateCartItem(ctx, productID, req)
}

func (s *Service) RemoveCartItem(ctx context.Context, productID string) ([]domain.CartItem, error) {
	return s.store.RemoveCartItem(ctx, productID)
}

func (s *Service) ClearCart(ctx context.Context) error {
	return s.store.ClearCart(ctx)
}

// Checkout turns the cart into a receipt. A nil receipt with nil error means
// the cart was empty; callers treat it as nothing-to-do, not a failure.
func (s *Service) Checkout(ctx context.Context, req domain.TransactionRequest) (*domain.Receipt, error) {
	receipt, err := s.store.ProcessTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}
	s.logger.Info().
		Str("token", receipt.Token).
		Int64("total_cents", receipt.TotalCents).
		Str("payment_method", receipt.PaymentMethod).
		Msg("checkout complete")
	return receipt, nil
}

func (s *Service) AddManualReceipt(ctx context.Context, req domain.ManualReceiptRequest) (*domain.Receipt, error) {
	receipt, err := s.store.AddManualReceipt(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("token", receipt.Token).Msg("manual receipt recorded")
	return receipt, nil
}

func (s *Service) GetReceipt(ctx context.Context, token string) (*domain.Receipt, error) {
	return s.store.GetReceipt(ctx, token)
}

func (s *Service) ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error) {
	return s.store.ListReceipts(ctx, limit)
}

// PrintReceipt formats a stored receipt and submits it to the printer. When
// the link is down the printer.ErrNotConnected condition propagates; the job
// is never silently dropped.
func (s *Service) PrintReceipt(ctx context.Context, token string) error {
	receipt, err := s.store.GetReceipt(ctx, token)
	if err != nil {
		return err
	}
	job := s.formatter.Format(*receipt)
	if err := s.printers.Print(ctx, job); err != nil {
		return fmt.Errorf("print receipt %s: %w", token, err)
	}
	s.logger.Info().Str("token", token).Msg("receipt printed")
	return nil
}

func (s *Service) ConnectPrinter(ctx context.Context) error {
	return s.printers.Connect(ctx)
}

func (s *Service) DisconnectPrinter(ctx context.Context) error {
	return s.printers.Disconnect(ctx)
}

func (s *Service) PrinterStatus() string {
	return s.printers.Status()
}

// OpenCashDrawer pulses the drawer solenoid through the printer link.
func (s *Service) OpenCashDrawer(ctx context.Context) error {
	return s.printers.Print(ctx, printer.DrawerKickJob())
}

// DailyReport aggregates the given day's receipts. date is "2006-01-02";
// empty means today.
func (s *Service) DailyReport(ctx context.Context, date string) (report.DailySummary, error) {
	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return report.DailySummary{}, store.ErrInvalidInput
		}
		day = parsed
	}

	receipts, err := s.store.ListReceipts(ctx, 0)
	if err != nil {
		return report.DailySummary{}, err
	}
	return report.Summarize(receipts, day), nil
}

func (s *Service) FormatPrice(cents int64) string {
	return domain.FormatPrice(cents)
}
