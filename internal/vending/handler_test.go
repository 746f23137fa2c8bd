package vending

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProducer struct {
	messages []kafkago.Message
	err      error
}

func (p *fakeProducer) WriteMessage(_ context.Context, msg kafkago.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) events(t *testing.T) []Event {
	t.Helper()
	events := make([]Event, 0, len(p.messages))
	for _, msg := range p.messages {
		var e Event
		require.NoError(t, json.Unmarshal(msg.Value, &e))
		events = append(events, e)
	}
	return events
}

func newTestHandler(t *testing.T, machine *Machine) (*KafkaMessageHandler, *fakeProducer, *observer.ObservedLogs) {
	t.Helper()
	h := newServiceHarness(t, machine)
	core, logs := observer.New(zapcore.InfoLevel)
	producer := &fakeProducer{}
	handler := NewMessageHandler(h.svc, producer, zap.New(core), "vm-test")
	handler.newID = func() string { return "evt-1" }
	return handler, producer, logs
}

func commandMessage(t *testing.T, raw string) kafkago.Message {
	t.Helper()
	require.True(t, json.Valid([]byte(raw)), "invalid test fixture: %s", raw)
	return kafkago.Message{Key: []byte("vm-test"), Value: []byte(raw)}
}

func TestHandleCommandSession(t *testing.T) {
	handler, producer, _ := newTestHandler(t, stockedMachine())
	ctx := context.Background()

	for _, raw := range []string{
		`{"command_id":"c1","type":"deposit","amount":200}`,
		`{"command_id":"c2","type":"deposit","amount":"XYZ"}`,
		`{"command_id":"c3","type":"deposit","amount":-5}`,
		`{"command_id":"c4","type":"deposit","amount":100}`,
		`{"command_id":"c5","type":"purchase","item_code":"001"}`,
	} {
		require.NoError(t, handler.HandleCommand(ctx, commandMessage(t, raw)))
	}

	events := producer.events(t)
	require.Len(t, events, 5)
	assert.Equal(t, []int{200, 200, 200, 300, 0}, []int{
		events[0].Balance, events[1].Balance, events[2].Balance, events[3].Balance, events[4].Balance,
	})

	want := Event{
		EventID:   "evt-1",
		CommandID: "c5",
		MachineID: "vm-test",
		Type:      CommandPurchase,
		ItemCode:  "001",
		Item:      &Item{Name: "Dr Pepper", Quantity: 9, Price: 100},
		Change:    &Coins{Quarters: 8},
	}
	if diff := cmp.Diff(want, events[4]); diff != "" {
		t.Errorf("purchase event mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []byte("vm-test"), producer.messages[4].Key)
}

func TestHandleCommandPurchaseErrorCodes(t *testing.T) {
	tests := []struct {
		name        string
		deposit     string
		itemCode    string
		wantCode    ErrorCode
		wantBalance int
		wantChange  Coins
	}{
		{"unknown item", "300", "007", ErrUnknownItem, 0, Coins{Quarters: 12}},
		{"insufficient funds", "50", "001", ErrInsufficientFunds, 50, Coins{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, producer, _ := newTestHandler(t, stockedMachine())
			ctx := context.Background()

			require.NoError(t, handler.HandleCommand(ctx, commandMessage(t, `{"command_id":"d","type":"deposit","amount":`+tt.deposit+`}`)))
			require.NoError(t, handler.HandleCommand(ctx, commandMessage(t, `{"command_id":"p","type":"purchase","item_code":"`+tt.itemCode+`"}`)))

			events := producer.events(t)
			require.Len(t, events, 2)
			got := events[1]
			assert.Equal(t, tt.wantCode, got.ErrorCode)
			assert.Nil(t, got.Item)
			assert.Equal(t, tt.wantBalance, got.Balance)
			require.NotNil(t, got.Change)
			assert.Equal(t, tt.wantChange, *got.Change)
		})
	}
}

func TestHandleCommandRefundAndRestock(t *testing.T) {
	handler, producer, _ := newTestHandler(t, NewMachine())
	ctx := context.Background()

	require.NoError(t, handler.HandleCommand(ctx, commandMessage(t, `{"command_id":"r0","type":"restock","item_code":"A1","item":{"name":"Gum","quantity":3,"price":65}}`)))
	require.NoError(t, handler.HandleCommand(ctx, commandMessage(t, `{"command_id":"d","type":"deposit","amount":"41"}`)))
	require.NoError(t, handler.HandleCommand(ctx, commandMessage(t, `{"command_id":"r1","type":"refund"}`)))

	events := producer.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, &Item{Name: "Gum", Quantity: 3, Price: 65}, events[0].Item)
	assert.Equal(t, 41, events[1].Balance)
	assert.Equal(t, &Coins{Quarters: 1, Dimes: 1, Nickels: 1, Pennies: 1}, events[2].Change)
	assert.Equal(t, 0, events[2].Balance)
}

func TestHandleCommandRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"restock without item", `{"command_id":"x","type":"restock","item_code":"A1"}`, ErrMissingItem},
		{"unknown type", `{"command_id":"x","type":"shake"}`, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, producer, logs := newTestHandler(t, NewMachine())

			err := handler.HandleCommand(context.Background(), commandMessage(t, tt.value))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, producer.messages)
			assert.Equal(t, 1, logs.FilterMessage("❌ Failed to apply command").Len())
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		handler, producer, logs := newTestHandler(t, NewMachine())

		err := handler.HandleCommand(context.Background(), kafkago.Message{Value: []byte("{not json")})

		assert.Error(t, err)
		assert.Empty(t, producer.messages)
		assert.Equal(t, 1, logs.FilterMessage("❌ Invalid JSON in vending command").Len())
	})
}

func TestHandleCommandPublishFailure(t *testing.T) {
	handler, producer, logs := newTestHandler(t, NewMachine())
	producer.err = assert.AnError

	err := handler.HandleCommand(context.Background(), commandMessage(t, `{"command_id":"c","type":"refund"}`))

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, logs.FilterMessage("❌ Failed to publish vending event").Len())
}

func TestNewMessageHandlerUsesUUIDEventIDs(t *testing.T) {
	h := newServiceHarness(t, NewMachine())
	producer := &fakeProducer{}
	handler := NewMessageHandler(h.svc, producer, zap.NewNop(), "vm-test")

	require.NoError(t, handler.HandleCommand(context.Background(), commandMessage(t, `{"command_id":"c","type":"refund"}`)))

	events := producer.events(t)
	require.Len(t, events, 1)
	_, err := uuid.Parse(events[0].EventID)
	assert.NoError(t, err)
}
