package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trackgen/internal/tracking/metrics"
	"trackgen/internal/tracking/models"
	dErrors "trackgen/pkg/domain-errors"
	"trackgen/pkg/platform/httputil"
	"trackgen/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for tracking number operations.
type Service interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.IssuedTrackingNumber, error)
	Exists(ctx context.Context, code models.TrackingNumber) (bool, error)
}

// Handler wires tracking number endpoints to the generator service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a tracking handler with its dependencies.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts tracking endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/generate-tracking-number", h.HandleGenerate)
	r.Get("/tracking-numbers/{code}", h.HandleLookup)
}

// HandleGenerate handles POST /generate-tracking-number requests.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := requestcontext.Now(ctx)

	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed form parameters"))
		return
	}
	req := generateRequestFromForm(r.Form)
	if err := req.Validate(); err != nil {
		var fieldErrs FieldErrors
		if !errors.As(err, &fieldErrs) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid parameters"))
			return
		}
		for field := range fieldErrs {
			h.metrics.IncrementRejection(field)
		}
		h.logger.InfoContext(ctx, "tracking number request rejected",
			"request_id", requestID,
			"errors", fieldErrs,
		)
		writeValidationError(w, r, fieldErrs)
		return
	}

	issued, err := h.service.Generate(ctx, req.ToModel())
	if err != nil {
		h.logger.ErrorContext(ctx, "tracking number generation failed",
			"request_id", requestID,
			"customer_id", req.CustomerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tracking number generated",
		"request_id", requestID,
		"customer_id", req.CustomerID,
		"tracking_number", issued.TrackingNumber,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromIssued(issued))
}

// HandleLookup handles GET /tracking-numbers/{code} requests.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := models.TrackingNumber(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code"))))

	exists, err := h.service.Exists(ctx, code)
	if err != nil {
		h.logger.ErrorContext(ctx, "tracking number lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"tracking_number", code,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !exists {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "tracking number not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LookupResponse{TrackingNumber: code.String(), Exists: true})
}
