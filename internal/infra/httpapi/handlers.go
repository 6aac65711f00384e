package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lease_notifier/internal/app"
	"lease_notifier/internal/domain"
	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type ContractManager interface {
	CreateContract(ctx context.Context, in app.ContractInput) (*contract.Contract, []*annuity.Annuity, error)
	UpdateContract(ctx context.Context, id int64, in app.ContractInput) (*contract.Contract, []*annuity.Annuity, error)
	GetContract(ctx context.Context, id int64) (*contract.Contract, error)
	DeleteContract(ctx context.Context, id int64) error
}

type AnnuityManager interface {
	GenerateAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)
	RecalculateAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)
	ListAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)
	MarkAnnuityPaid(ctx context.Context, contractID int64, year int) (*annuity.Annuity, error)
}

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	contracts       ContractManager
	annuities       AnnuityManager
	dispatcher      app.DispatchRunner
	dispatchTimeout time.Duration
	logger          *logrus.Entry
}

func NewHandler(cm ContractManager, am AnnuityManager, runner app.DispatchRunner, dispatchTimeout time.Duration, logger *logrus.Entry) *Handler {
	return &Handler{
		contracts:       cm,
		annuities:       am,
		dispatcher:      runner,
		dispatchTimeout: dispatchTimeout,
		logger:          logger,
	}
}

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeContract(w, r)
	if !ok {
		return
	}
	c, rows, err := h.contracts.CreateContract(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(c, rows))
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	c, err := h.contracts.GetContract(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, nil))
}

func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	in, ok := h.decodeContract(w, r)
	if !ok {
		return
	}
	c, rows, err := h.contracts.UpdateContract(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, r, "Failed to update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, rows))
}

func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.contracts.DeleteContract(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAnnuities(w http.ResponseWriter, r *http.Request) {
	h.annuityList(w, r, "Failed to list annuities", h.annuities.ListAnnuities)
}

func (h *Handler) GenerateAnnuities(w http.ResponseWriter, r *http.Request) {
	h.annuityList(w, r, "Failed to generate annuities", h.annuities.GenerateAnnuities)
}

func (h *Handler) RecalculateAnnuities(w http.ResponseWriter, r *http.Request) {
	h.annuityList(w, r, "Failed to recalculate annuities", h.annuities.RecalculateAnnuities)
}

func (h *Handler) annuityList(w http.ResponseWriter, r *http.Request, failure string,
	fn func(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	rows, err := fn(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, failure, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnuityDTOs(rows))
}

func (h *Handler) MarkAnnuityPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	a, err := h.annuities.MarkAnnuityPaid(r.Context(), id, year)
	if err != nil {
		h.writeDomainError(w, r, "Failed to mark annuity paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnuityDTO(a))
}

// RunDispatch triggers an expiry dispatch and relays its stats. On failure the partial
// stats are still returned.
func (h *Handler) RunDispatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.dispatchTimeout)
	defer cancel()

	stats, err := h.dispatcher.RunExpiryDispatch(ctx)
	resp := DispatchResponse{Stats: toStatsDTO(stats)}
	if err != nil {
		h.logger.WithError(err).WithField("run_id", stats.RunID).Error("Manual dispatch failed")
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) decodeContract(w http.ResponseWriter, r *http.Request) (app.ContractInput, bool) {
	var req ContractRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return app.ContractInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract", err)
		return app.ContractInput{}, false
	}
	return in, true
}

// writeDomainError maps NotFound to 404, InvalidState to 400 and anything else to 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case domain.IsInvalidState(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error(message)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("HTTP request")
		})
	}
}
