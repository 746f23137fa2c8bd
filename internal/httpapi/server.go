package httpapi

import (
	"encoding/json"
	"net/http"

	"vendingmachine/internal/platform/observability"
	"vendingmachine/internal/vending"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Server exposes one vending machine over JSON/HTTP.
type Server struct {
	service vending.Service
	logger  observability.Logger
}

func NewServer(service vending.Service, logger observability.Logger) *Server {
	return &Server{service: service, logger: logger}
}

type depositRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type balanceResponse struct {
	Balance int `json:"balance"`
}

type changeResponse struct {
	Change  vending.Coins `json:"change"`
	Balance int           `json:"balance"`
}

type purchaseErrorResponse struct {
	ErrorCode vending.ErrorCode `json:"error_code"`
	Change    vending.Coins     `json:"change"`
	Balance   int               `json:"balance"`
}

type registerResponse struct {
	Register vending.Coins `json:"register"`
	Balance  int           `json:"balance"`
}

// Handler returns the instrumented route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	handleFunc := func(pattern string, handlerFunc func(http.ResponseWriter, *http.Request)) {
		handler := otelhttp.WithRouteTag(pattern, http.HandlerFunc(handlerFunc))
		mux.Handle(pattern, handler)
	}

	handleFunc("POST /deposit", s.deposit)
	handleFunc("POST /purchase/{code}", s.purchase)
	handleFunc("POST /refund", s.refund)
	handleFunc("GET /items", s.listItems)
	handleFunc("GET /items/{code}", s.getItem)
	handleFunc("PUT /items/{code}", s.restock)
	handleFunc("GET /register", s.register)

	return otelhttp.NewHandler(mux, "vending-http",
		otelhttp.WithMeterProvider(otel.GetMeterProvider()),
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
	)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var payload depositRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	cmd := vending.Command{Amount: payload.Amount}
	balance := s.service.Deposit(r.Context(), cmd.DepositAmount())
	s.respond(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receipt, err := s.service.Purchase(ctx, r.PathValue("code"))
	if err == nil {
		s.respond(w, http.StatusOK, receipt)
		return
	}

	code := vending.CodeOf(err)
	if code == "" {
		s.logger.Error("❌ Purchase failed", zap.Error(err))
		s.respondError(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.respond(w, statusForCode(code), purchaseErrorResponse{
		ErrorCode: code,
		Change:    receipt.Change,
		Balance:   s.service.Balance(ctx),
	})
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	change := s.service.Refund(ctx)
	s.respond(w, http.StatusOK, changeResponse{Change: change, Balance: s.service.Balance(ctx)})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.service.Items(r.Context()))
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.service.Item(r.Context(), r.PathValue("code"))
	if !ok {
		s.respondError(w, "item not found", http.StatusNotFound)
		return
	}
	s.respond(w, http.StatusOK, item)
}

func (s *Server) restock(w http.ResponseWriter, r *http.Request) {
	var item vending.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.respondError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	s.service.Restock(r.Context(), r.PathValue("code"), item)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.respond(w, http.StatusOK, registerResponse{
		Register: s.service.Register(ctx),
		Balance:  s.service.Balance(ctx),
	})
}

func statusForCode(code vending.ErrorCode) int {
	switch code {
	case vending.ErrUnknownItem:
		return http.StatusNotFound
	case vending.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusConflict
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write HTTP response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, message string, status int) {
	s.respond(w, status, map[string]string{"error": message})
}
