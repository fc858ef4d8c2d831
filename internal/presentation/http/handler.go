package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	appcatalog "github.com/shopflow/fulfillment/internal/application/catalog"
	apporder "github.com/shopflow/fulfillment/internal/application/order"
	dominv "github.com/shopflow/fulfillment/internal/domain/inventory"
	domorder "github.com/shopflow/fulfillment/internal/domain/order"
	dompay "github.com/shopflow/fulfillment/internal/domain/payment"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopflow/fulfillment/pkg/errcode"
)

type Handler struct {
	saga     *apporder.Saga
	catalog  *appcatalog.Service
	recorder tracing.Recorder
	obs      observability.Observability
}

func NewHandler(saga *apporder.Saga, catalog *appcatalog.Service, recorder tracing.Recorder, obs observability.Observability) *Handler {
	return &Handler{saga: saga, catalog: catalog, recorder: recorder, obs: obs}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.obs))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/orders", h.handlePlaceOrder)
	r.Get("/orders/{orderID}", h.handleGetOrder)
	r.Post("/orders/{orderID}/release", h.handleReleaseReservation)

	r.Get("/customers", h.handleListCustomers)
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{productID}", h.handleGetProduct)

	r.Get("/traces", h.handleListTraces)
	r.Get("/traces/{traceID}", h.handleGetTrace)

	return r
}

type lineItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerID    string            `json:"customer_id"`
	Items         []lineItemRequest `json:"items"`
	PaymentMethod string            `json:"payment_method"`
}

type placeOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Total   string `json:"total"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]domorder.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = domorder.LineItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.saga.PlaceOrder(r.Context(), apporder.PlaceOrderInput{
		CustomerID:    req.CustomerID,
		Items:         items,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID: result.OrderID,
		Status:  string(result.Status),
		Total:   result.Total.String(),
	})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.saga.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleReleaseReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.saga.ReleaseReservation(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.catalog.ListCustomers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.catalog.GetProductWithInventory(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleListTraces(w http.ResponseWriter, r *http.Request) {
	filter := tracing.Filter{
		Source: r.URL.Query().Get("source"),
		Status: tracing.Status(r.URL.Query().Get("status")),
	}
	traces, err := h.recorder.ListTraces(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, traces)
}

func (h *Handler) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := h.recorder.GetTrace(r.Context(), chi.URLParam(r, "traceID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func decodeJSON(ctx context.Context, r *http.Request, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dec := json.NewDecoder(r.Body)
	// Closed schemas at the boundary: unknown fields are rejected, not
	// silently dropped.
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeDomainError maps taxonomy codes to HTTP statuses and renders the
// structured {code, ...context} payload.
func writeDomainError(w http.ResponseWriter, err error) {
	body := errorBody(err)

	status := http.StatusInternalServerError
	switch errcode.Of(err) {
	case "NOT_FOUND", "CUSTOMER_NOT_FOUND":
		status = http.StatusNotFound
	case "INVALID_INPUT":
		status = http.StatusBadRequest
	case "CUSTOMER_INELIGIBLE":
		status = http.StatusUnprocessableEntity
	case "INSUFFICIENT_INVENTORY", "INVENTORY_RESERVATION_FAILED":
		status = http.StatusConflict
	case "PAYMENT_FAILED":
		status = http.StatusPaymentRequired
	case "PRODUCT_FETCH_FAILED":
		status = http.StatusBadGateway
	default:
		if errors.Is(err, domorder.ErrNotFound) || errors.Is(err, tracing.ErrTraceNotFound) {
			status = http.StatusNotFound
		}
	}

	writeJSON(w, status, body)
}

func errorBody(err error) map[string]any {
	body := map[string]any{"message": err.Error()}
	if code := errcode.Of(err); code != "" {
		body["code"] = code
	}

	var insufficient *dominv.InsufficientError
	var ineligible *apporder.IneligibleError
	var productFetch *apporder.ProductFetchError
	var declined *dompay.DeclinedError
	switch {
	case errors.As(err, &insufficient):
		body["product_id"] = insufficient.ProductID
		body["requested"] = insufficient.Requested
		body["available"] = insufficient.Available
	case errors.As(err, &ineligible):
		body["reason"] = string(ineligible.Reason)
	case errors.As(err, &productFetch):
		body["product_id"] = productFetch.ProductID
	case errors.As(err, &declined):
		body["reason"] = declined.Reason
	}
	return body
}

