package vending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vendingmachine/internal/platform/kafka"
	"vendingmachine/internal/platform/observability"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand = errors.New("unknown command type")
	ErrMissingItem    = errors.New("restock command without item")
)

// MessageHandler defines the interface for processing incoming messages.
type MessageHandler interface {
	HandleCommand(ctx context.Context, msg kafkago.Message) error
}

// KafkaMessageHandler applies vending commands from Kafka and publishes the results
type KafkaMessageHandler struct {
	service   Service
	producer  kafka.Producer
	logger    observability.Logger
	machineID string
	newID     func() string
}

// NewMessageHandler creates a new MessageHandler instance with explicit dependencies
func NewMessageHandler(service Service, producer kafka.Producer, logger observability.Logger, machineID string) *KafkaMessageHandler {
	return &KafkaMessageHandler{
		service:   service,
		producer:  producer,
		logger:    logger,
		machineID: machineID,
		newID:     uuid.NewString,
	}
}

// HandleCommand processes one command message from Kafka
func (h *KafkaMessageHandler) HandleCommand(ctx context.Context, msg kafkago.Message) error {
	// Extract trace context to connect spans across services
	msgCtx := h.extractTraceContext(ctx, msg.Headers)

	h.logger.Info("📨 Raw Kafka message received",
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var cmd Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		h.logger.Error("❌ Invalid JSON in vending command",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		return err
	}

	event, err := h.apply(msgCtx, cmd)
	if err != nil {
		h.logger.Error("❌ Failed to apply command",
			zap.Error(err),
			zap.String("command_id", cmd.CommandID),
			zap.String("type", string(cmd.Type)),
		)
		return err
	}

	return h.publishEvent(msgCtx, event)
}

// apply runs cmd against the service and describes the result.
func (h *KafkaMessageHandler) apply(ctx context.Context, cmd Command) (*Event, error) {
	event := &Event{
		EventID:   h.newID(),
		CommandID: cmd.CommandID,
		MachineID: h.machineID,
		Type:      cmd.Type,
		ItemCode:  cmd.ItemCode,
	}

	switch cmd.Type {
	case CommandDeposit:
		event.Balance = h.service.Deposit(ctx, cmd.DepositAmount())
		return event, nil

	case CommandPurchase:
		receipt, err := h.service.Purchase(ctx, cmd.ItemCode)
		if err != nil && CodeOf(err) == "" {
			return nil, err
		}
		event.ErrorCode = CodeOf(err)
		event.Item = receipt.Item
		event.Change = &receipt.Change
		event.Balance = h.service.Balance(ctx)
		return event, nil

	case CommandRefund:
		change := h.service.Refund(ctx)
		event.Change = &change
		return event, nil

	case CommandRestock:
		if cmd.Item == nil {
			return nil, ErrMissingItem
		}
		h.service.Restock(ctx, cmd.ItemCode, *cmd.Item)
		if item, ok := h.service.Item(ctx, cmd.ItemCode); ok {
			event.Item = &item
		}
		event.Balance = h.service.Balance(ctx)
		return event, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// extractTraceContext extracts OpenTelemetry trace context from Kafka message headers
func (h *KafkaMessageHandler) extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// publishEvent publishes a vending event to Kafka
func (h *KafkaMessageHandler) publishEvent(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("❌ Failed to serialize vending event",
			zap.Error(err),
			zap.String("command_id", event.CommandID),
		)
		return err
	}

	kafkaMsg := kafkago.Message{
		Value: payload,
		Key:   []byte(event.MachineID),
	}

	if err := h.producer.WriteMessage(ctx, kafkaMsg); err != nil {
		h.logger.Error("❌ Failed to publish vending event",
			zap.Error(err),
			zap.String("command_id", event.CommandID),
		)
		return err
	}

	h.logger.Info("📤 Sent vending event",
		zap.String("command_id", event.CommandID),
		zap.String("type", string(event.Type)),
		zap.String("error_code", string(event.ErrorCode)),
	)
	return nil
}
