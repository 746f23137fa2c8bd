package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vendingmachine/internal/vending"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	machine := vending.NewMachine()
	machine.Restock("001", vending.Item{Name: "Dr Pepper", Quantity: 10, Price: 100})
	machine.Restock("003", vending.Item{Name: "Coca Cola", Quantity: 0, Price: 100})

	svc, err := vending.NewService(machine, zap.NewNop(), tracenoop.NewTracerProvider().Tracer("test"), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return NewServer(svc, zap.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestDepositAndPurchase(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/deposit", `{"amount":300}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 300, decode[balanceResponse](t, rec).Balance)

	rec = do(t, h, http.MethodPost, "/purchase/001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	receipt := decode[vending.Receipt](t, rec)
	require.NotNil(t, receipt.Item)
	assert.Equal(t, "Dr Pepper", receipt.Item.Name)
	assert.Equal(t, vending.Coins{Quarters: 8}, receipt.Change)

	rec = do(t, h, http.MethodGet, "/register", "")
	require.Equal(t, http.StatusOK, rec.Code)
	reg := decode[registerResponse](t, rec)
	assert.Equal(t, 104, reg.Register.Quarters)
	assert.Equal(t, 0, reg.Balance)
}

func TestDepositIgnoresInvalidAmount(t *testing.T) {
	h := newTestServer(t)

	for _, body := range []string{`{"amount":-100}`, `{"amount":"XYZ"}`, `{}`} {
		rec := do(t, h, http.MethodPost, "/deposit", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, 0, decode[balanceResponse](t, rec).Balance, body)
	}

	rec := do(t, h, http.MethodPost, "/deposit", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseErrors(t *testing.T) {
	tests := []struct {
		name        string
		deposit     string
		code        string
		wantStatus  int
		wantCode    vending.ErrorCode
		wantBalance int
	}{
		{"unknown item", `{"amount":300}`, "007", http.StatusNotFound, vending.ErrUnknownItem, 0},
		{"out of stock", `{"amount":300}`, "003", http.StatusConflict, vending.ErrOutOfStock, 0},
		{"insufficient funds", `{"amount":50}`, "001", http.StatusPaymentRequired, vending.ErrInsufficientFunds, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t)
			do(t, h, http.MethodPost, "/deposit", tt.deposit)

			rec := do(t, h, http.MethodPost, "/purchase/"+tt.code, "")

			require.Equal(t, tt.wantStatus, rec.Code)
			got := decode[purchaseErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, got.ErrorCode)
			assert.Equal(t, tt.wantBalance, got.Balance)
		})
	}
}

func TestRefund(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/deposit", `{"amount":165}`)

	rec := do(t, h, http.MethodPost, "/refund", "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[changeResponse](t, rec)
	assert.Equal(t, vending.Coins{Quarters: 6, Dimes: 1, Nickels: 1}, got.Change)
	assert.Equal(t, 0, got.Balance)
}

func TestItems(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/items/002", `{"name":"Pepsi","quantity":10,"price":100}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/items/002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vending.Item{Name: "Pepsi", Quantity: 10, Price: 100}, decode[vending.Item](t, rec))

	rec = do(t, h, http.MethodGet, "/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string]vending.Item](t, rec), 3)

	rec = do(t, h, http.MethodGet, "/items/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/items/002", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/deposit", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
