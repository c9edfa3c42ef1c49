package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/customobject"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/runstore"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/service"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/settings"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit   = 20
	maxRequestBodySize = 1 << 20 // 1MB
)

type Service interface {
	RunNow(ctx context.Context) domain.ProcessingReport
	LatestRun(ctx context.Context) (*domain.ProcessingReport, error)
	RecentRuns(ctx context.Context, n int) ([]domain.ProcessingReport, error)
	ListRecords(ctx context.Context, offset, limit int) (domain.RecordPage, error)
	GetRecord(ctx context.Context, cartID string) (*domain.AbandonedCartRecord, error)
	Configuration(ctx context.Context) (domain.ConfigurationDocument, domain.Configuration, error)
	SaveConfiguration(ctx context.Context, doc domain.ConfigurationDocument) error
	Administration(ctx context.Context) (domain.ServiceAdministration, error)
	SaveAdministration(ctx context.Context, admin domain.ServiceAdministration) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ConfigurationResponse struct {
	Configuration domain.ConfigurationDocument `json:"configuration"`
	Effective     domain.Configuration         `json:"effective"`
}

// Process runs the pipeline and returns its report. A failed run still
// carries the full report in the body.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	report := h.svc.RunNow(r.Context())
	if !report.Success {
		respondJSON(w, http.StatusInternalServerError, report)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}

	page, err := h.svc.ListRecords(r.Context(), offset, limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	if cartID == "" {
		respondError(w, http.StatusBadRequest, "missing_cart_id", "cartId is required")
		return
	}

	record, err := h.svc.GetRecord(r.Context(), cartID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	doc, effective, err := h.svc.Configuration(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ConfigurationResponse{Configuration: doc, Effective: effective})
}

func (h *Handler) PutConfiguration(w http.ResponseWriter, r *http.Request) {
	var doc domain.ConfigurationDocument
	if !decodeBody(w, r, &doc) {
		return
	}
	if err := h.svc.SaveConfiguration(r.Context(), doc); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.GetConfiguration(w, r)
}

func (h *Handler) GetAdministration(w http.ResponseWriter, r *http.Request) {
	admin, err := h.svc.Administration(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if admin.RunEveryHours == nil {
		admin.RunEveryHours = settings.RunEveryHours(admin)
	}
	respondJSON(w, http.StatusOK, admin)
}

func (h *Handler) PutAdministration(w http.ResponseWriter, r *http.Request) {
	var admin domain.ServiceAdministration
	if !decodeBody(w, r, &admin) {
		return
	}
	if err := h.svc.SaveAdministration(r.Context(), admin); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, admin)
}

func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.LatestRun(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", service.MaxRecentRuns)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	reports, err := h.svc.RecentRuns(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if reports == nil {
		reports = []domain.ProcessingReport{}
	}
	respondJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, customobject.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "record_not_found", err.Error())
	case errors.Is(err, runstore.ErrNoRuns):
		respondError(w, http.StatusNotFound, "no_runs", err.Error())
	case errors.Is(err, service.ErrInvalidPage):
		respondError(w, http.StatusBadRequest, "invalid_page", err.Error())
	case errors.Is(err, settings.ErrInvalidConfiguration):
		respondError(w, http.StatusBadRequest, "invalid_configuration", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
