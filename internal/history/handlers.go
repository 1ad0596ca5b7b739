package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/microservice-patterns/order-history-service/internal/middleware"
	"github.com/microservice-patterns/order-history-service/internal/types/order"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/orders", h.ListOrderHistory)
	r.Get("/orders/{orderID}", h.GetOrder)
	return r
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	o, err := h.svc.FindOrder(r.Context(), orderID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(o)
	}
}

func (h *Handler) ListOrderHistory(w http.ResponseWriter, r *http.Request) {
	consumerID := middleware.ConsumerIDFromContext(r.Context())

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.FindOrderHistory(r.Context(), consumerID, filter)
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if len(result.Orders) == 0 && result.StartKeyToken == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func filterFromQuery(r *http.Request) (*order.HistoryFilter, error) {
	filter := &order.HistoryFilter{
		Status:        order.OrderStatus(r.URL.Query().Get("status")),
		StartKeyToken: r.URL.Query().Get("start_key"),
	}
	if kw := r.URL.Query().Get("keywords"); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				filter.Keywords = append(filter.Keywords, k)
			}
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil {
			return nil, ErrInvalidFilter
		}
		filter.PageSize = &n
	}
	return filter, nil
}
