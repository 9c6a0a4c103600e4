package handler

import (
	"net/http"
	"time"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/httputil"
)

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	TrackingNumber string `json:"tracking_number"`
	CreatedAt      string `json:"created_at"`
}

// FromIssued formats the issuance instant as RFC 3339 in UTC.
func FromIssued(issued *models.IssuedTrackingNumber) GenerateResponse {
	return GenerateResponse{
		TrackingNumber: issued.TrackingNumber.String(),
		CreatedAt:      issued.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
}

// LookupResponse is the body of a successful lookup.
type LookupResponse struct {
	TrackingNumber string `json:"tracking_number"`
	Exists         bool   `json:"exists"`
}

// ValidationErrorResponse lists every rejected parameter.
type ValidationErrorResponse struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Path    string            `json:"path"`
	Errors  map[string]string `json:"errors"`
}

func writeValidationError(w http.ResponseWriter, r *http.Request, errs FieldErrors) {
	httputil.WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Status:  http.StatusBadRequest,
		Message: http.StatusText(http.StatusBadRequest),
		Path:    r.URL.Path,
		Errors:  errs,
	})
}
