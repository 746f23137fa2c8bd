package vending

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"vendingmachine/internal/platform/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Receipt is the outcome of a purchase attempt. Item is set only when the
// purchase succeeded; Change holds whatever was returned to the customer.
type Receipt struct {
	ItemCode string `json:"item_code"`
	Item     *Item  `json:"item,omitempty"`
	Change   Coins  `json:"change"`
}

// Service defines the customer and operator operations on one machine.
type Service interface {
	Deposit(ctx context.Context, amount int) int
	Purchase(ctx context.Context, itemCode string) (Receipt, error)
	Refund(ctx context.Context) Coins
	Restock(ctx context.Context, itemCode string, item Item)
	Item(ctx context.Context, itemCode string) (Item, bool)
	Items(ctx context.Context) map[string]Item
	Register(ctx context.Context) Coins
	Balance(ctx context.Context) int
}

// DefaultService serializes access to a Machine and instruments every call.
type DefaultService struct {
	mu      sync.Mutex
	machine *Machine

	logger observability.Logger
	tracer observability.Tracer

	purchases metric.Int64Counter
	deposits  metric.Int64Counter
	refunds   metric.Int64Counter
}

// NewService creates a service around machine with explicit dependencies
func NewService(machine *Machine, logger observability.Logger, tracer observability.Tracer, meter metric.Meter) (*DefaultService, error) {
	purchases, err := meter.Int64Counter("vending.purchases",
		metric.WithDescription("Purchase attempts by outcome"),
		metric.WithUnit("{purchase}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create purchases counter: %w", err)
	}
	deposits, err := meter.Int64Counter("vending.deposits",
		metric.WithDescription("Money accepted from customers"),
		metric.WithUnit("{cent}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create deposits counter: %w", err)
	}
	refunds, err := meter.Int64Counter("vending.refunds",
		metric.WithDescription("Money returned to customers"),
		metric.WithUnit("{cent}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refunds counter: %w", err)
	}

	return &DefaultService{
		machine:   machine,
		logger:    logger,
		tracer:    tracer,
		purchases: purchases,
		deposits:  deposits,
		refunds:   refunds,
	}, nil
}

func (s *DefaultService) Deposit(ctx context.Context, amount int) int {
	ctx, span := s.tracer.Start(ctx, "vending.deposit")
	defer span.End()

	s.mu.Lock()
	balance := s.machine.Deposit(amount)
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("vending.amount", amount),
		attribute.Int("vending.balance", balance),
	)

	if amount <= 0 {
		s.logger.Warn("⚠️ Ignored invalid deposit", zap.Int("amount", amount), zap.Int("balance", balance))
		return balance
	}

	s.deposits.Add(ctx, int64(amount))
	s.logger.Info("💰 Deposit accepted", zap.Int("amount", amount), zap.Int("balance", balance))
	return balance
}

func (s *DefaultService) Purchase(ctx context.Context, itemCode string) (Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "vending.purchase",
		trace.WithAttributes(attribute.String("vending.item_code", itemCode)))
	defer span.End()

	s.mu.Lock()
	deposited := s.machine.Balance()
	item, err := s.machine.Purchase(itemCode)
	change := s.machine.CollectCoinReturn()
	var sold *Item
	if item != nil {
		copied := *item
		sold = &copied
	}
	s.mu.Unlock()

	receipt := Receipt{ItemCode: itemCode, Item: sold, Change: change}
	outcome := "success"
	if code := CodeOf(err); code != "" {
		outcome = strings.ToLower(string(code))
	}

	span.SetAttributes(
		attribute.Int("vending.deposited", deposited),
		attribute.Int("vending.change", change.Total()),
		attribute.String("vending.outcome", outcome),
	)
	s.purchases.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if change.Total() > 0 {
		s.refunds.Add(ctx, int64(change.Total()))
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Info("🚫 Purchase rejected",
			zap.String("item_code", itemCode),
			zap.String("error_code", err.Error()),
			zap.Int("deposited", deposited),
			zap.Int("refunded", change.Total()),
		)
		return receipt, err
	}

	span.SetStatus(codes.Ok, "Item dispensed")
	s.logger.Info("🥤 Item dispensed",
		zap.String("item_code", itemCode),
		zap.String("item_name", sold.Name),
		zap.Int("price", sold.Price),
		zap.Int("remaining", sold.Quantity),
		zap.Int("change", change.Total()),
	)
	return receipt, nil
}

func (s *DefaultService) Refund(ctx context.Context) Coins {
	ctx, span := s.tracer.Start(ctx, "vending.refund")
	defer span.End()

	s.mu.Lock()
	s.machine.Refund()
	coins := s.machine.CollectCoinReturn()
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("vending.refunded", coins.Total()))
	if coins.Total() > 0 {
		s.refunds.Add(ctx, int64(coins.Total()))
	}
	s.logger.Info("↩️ Refund issued", zap.Int("refunded", coins.Total()))
	return coins
}

func (s *DefaultService) Restock(ctx context.Context, itemCode string, item Item) {
	_, span := s.tracer.Start(ctx, "vending.restock")
	defer span.End()

	s.mu.Lock()
	s.machine.Restock(itemCode, item)
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("vending.item_code", itemCode),
		attribute.Int("vending.quantity", item.Quantity),
		attribute.Int("vending.price", item.Price),
	)
	s.logger.Info("📦 Slot restocked",
		zap.String("item_code", itemCode),
		zap.String("item_name", item.Name),
		zap.Int("quantity", item.Quantity),
		zap.Int("price", item.Price),
	)
}

func (s *DefaultService) Item(ctx context.Context, itemCode string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.machine.GetItem(itemCode)
	if item == nil {
		return Item{}, false
	}
	return *item, true
}

func (s *DefaultService) Items(ctx context.Context) map[string]Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Items()
}

func (s *DefaultService) Register(ctx context.Context) Coins {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Register()
}

func (s *DefaultService) Balance(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Balance()
}
