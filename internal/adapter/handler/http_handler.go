package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/service"
	"github.com/rl1809/pantry/internal/logging"
)

type HTTPHandler struct {
	consumption *service.ConsumptionService
	ledger      *service.InventoryLedger

	rateLimit   int
	rateWindow  time.Duration
	corsOrigins []string
}

type Option func(*HTTPHandler)

// WithRateLimit limits /api requests per client IP. A non-positive limit
// disables it.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(h *HTTPHandler) {
		h.rateLimit = requests
		h.rateWindow = window
	}
}

// WithCORS allows cross-origin /api calls from origins.
func WithCORS(origins []string) Option {
	return func(h *HTTPHandler) {
		h.corsOrigins = origins
	}
}

type IngredientHTTP struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Unit   string          `json:"unit"`
}

type CookedHTTPRequest struct {
	RequestID   string           `json:"request_id"`
	OwnerID     string           `json:"owner_id"`
	RecipeID    string           `json:"recipe_id"`
	Ingredients []IngredientHTTP `json:"ingredients"`
}

type LineResultHTTP struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Amount  string `json:"amount,omitempty"`
	Unit    string `json:"unit,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type CookedHTTPResponse struct {
	RecordID string           `json:"record_id"`
	Recorded bool             `json:"recorded"`
	Items    []LineResultHTTP `json:"items"`
}

type RestockHTTPRequest struct {
	OwnerID     string           `json:"owner_id"`
	Ingredients []IngredientHTTP `json:"ingredients"`
}

const (
	RestockApplied  = "restocked"
	RestockRejected = "rejected"
)

type RestockResultHTTP struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Amount  string `json:"amount,omitempty"`
	Unit    string `json:"unit,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type RestockHTTPResponse struct {
	Items []RestockResultHTTP `json:"items"`
}

type StoredIngredientHTTP struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(consumption *service.ConsumptionService, ledger *service.InventoryLedger, opts ...Option) *HTTPHandler {
	h := &HTTPHandler{consumption: consumption, ledger: ledger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogging)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if len(h.corsOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: h.corsOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
				MaxAge:         300,
			}))
		}
		if h.rateLimit > 0 {
			r.Use(httprate.LimitByIP(h.rateLimit, h.rateWindow))
		}

		r.Post("/cooked", h.RecordCooked)
		r.Post("/ingredients", h.Restock)
		r.Get("/ingredients/{owner}", h.ListAvailable)
		r.Get("/groceries/{owner}", h.GroceryList)
	})
	return r
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *HTTPHandler) RecordCooked(w http.ResponseWriter, r *http.Request) {
	var req CookedHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || req.RecipeID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	items := make([]domain.LineItem, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		items = append(items, domain.LineItem{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit})
	}

	report, err := h.consumption.RecordCookedOnce(r.Context(), req.RequestID, req.OwnerID, req.RecipeID, items)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateRequest) {
			writeError(w, http.StatusConflict, "duplicate request")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("record cooked failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := CookedHTTPResponse{
		RecordID: report.RecordID,
		Recorded: report.Recorded,
		Items:    make([]LineResultHTTP, 0, len(report.Items)),
	}
	for _, it := range report.Items {
		line := LineResultHTTP{Name: it.Name, Outcome: string(it.Outcome), Reason: it.Reason}
		if it.Outcome == domain.OutcomeDecremented {
			line.Amount = it.NewAmount.StringFixed(domain.AmountPlaces)
			line.Unit = domain.DisplayUnit(it.NewAmount, it.Unit)
		}
		resp.Items = append(resp.Items, line)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Restock checks the whole batch before writing anything, then applies each
// ingredient independently and reports every outcome. It answers 422 only
// when no ingredient could be restocked.
func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || len(req.Ingredients) == 0 {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	for _, ing := range req.Ingredients {
		if ing.Name == "" {
			writeError(w, http.StatusBadRequest, "ingredient name is required")
			return
		}
		if ing.Amount.IsNegative() {
			writeError(w, http.StatusBadRequest, "amount must not be negative: "+ing.Name)
			return
		}
	}

	resp := RestockHTTPResponse{Items: make([]RestockResultHTTP, 0, len(req.Ingredients))}
	restocked := 0
	for _, ing := range req.Ingredients {
		saved, err := h.ledger.Restock(r.Context(), req.OwnerID, ing.Name, ing.Amount, ing.Unit)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("ingredient", ing.Name).Msg("restock rejected")
			resp.Items = append(resp.Items, RestockResultHTTP{Name: ing.Name, Outcome: RestockRejected, Reason: err.Error()})
			continue
		}
		restocked++
		out := storedToHTTP(saved)
		resp.Items = append(resp.Items, RestockResultHTTP{
			Name:    out.Name,
			Outcome: RestockApplied,
			Amount:  out.Amount,
			Unit:    out.Unit,
		})
	}

	status := http.StatusOK
	if restocked == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (h *HTTPHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	avail, err := h.ledger.Available(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("list ingredients failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]StoredIngredientHTTP, 0, len(avail))
	for _, ing := range avail {
		out = append(out, storedToHTTP(ing))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GroceryList(w http.ResponseWriter, r *http.Request) {
	names, err := h.ledger.Depleted(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("grocery list failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"groceries": names})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func storedToHTTP(ing domain.StoredIngredient) StoredIngredientHTTP {
	return StoredIngredientHTTP{
		Name:   ing.Name,
		Amount: ing.Amount.StringFixed(domain.AmountPlaces),
		Unit:   domain.DisplayUnit(ing.Amount, ing.Unit),
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorHTTPResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
