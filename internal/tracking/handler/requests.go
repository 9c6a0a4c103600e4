package handler

import (
	"math/big"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"trackgen/internal/tracking/models"
)

var (
	customerIDPattern   = regexp.MustCompile(`^[a-f0-9-]{36}$`)
	customerSlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	decimalPattern      = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

	minWeight = big.NewRat(1, 1000)
	maxWeight = big.NewRat(999999, 1000)
)

// GenerateRequest carries the query parameters of POST /generate-tracking-number.
type GenerateRequest struct {
	OriginCountryID      string `query:"origin_country_id" validate:"required,len=2,alpha"`
	DestinationCountryID string `query:"destination_country_id" validate:"required,len=2,alpha"`
	Weight               string `query:"weight" validate:"required,weight_min,weight_max"`
	CreatedAt            string `query:"created_at" validate:"notblank"`
	CustomerID           string `query:"customer_id" validate:"required,customer_id"`
	CustomerName         string `query:"customer_name" validate:"notblank"`
	CustomerSlug         string `query:"customer_slug" validate:"required,kebab"`
}

// FieldErrors maps a parameter name to its first failed rule.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, msg := range f {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Messages per field and rule. Unlisted rules use the "required" text.
var fieldMessages = map[string]map[string]string{
	"origin_country_id": {
		"required": "must not be blank",
		"len":      "Origin country ID must be 2 characters long.",
		"alpha":    "Origin country ID must be in ISO 3166-1 alpha-2 format.",
	},
	"destination_country_id": {
		"required": "must not be blank",
		"len":      "Destination country ID must be 2 characters long.",
		"alpha":    "Destination country ID must be in ISO 3166-1 alpha-2 format.",
	},
	"weight": {
		"required":   "must not be null",
		"weight_min": "Weight must be greater than 0.",
		"weight_max": "Weight must not exceed 999.999 kilograms.",
	},
	"created_at": {
		"required": "must not be blank",
	},
	"customer_id": {
		"required":    "must not be null",
		"customer_id": "Customer ID must be a valid UUID.",
	},
	"customer_name": {
		"required": "must not be blank",
	},
	"customer_slug": {
		"required": "must not be blank",
		"kebab":    "Customer slug must be in kebab-case.",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// A weight that is not a decimal fails the lower bound first.
	_ = v.RegisterValidation("weight_min", func(fl validator.FieldLevel) bool {
		w, ok := parseWeight(fl.Field().String())
		return ok && w.Cmp(minWeight) >= 0
	})
	_ = v.RegisterValidation("weight_max", func(fl validator.FieldLevel) bool {
		w, ok := parseWeight(fl.Field().String())
		return ok && w.Cmp(maxWeight) <= 0
	})
	_ = v.RegisterValidation("customer_id", func(fl validator.FieldLevel) bool {
		return customerIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("kebab", func(fl validator.FieldLevel) bool {
		return customerSlugPattern.MatchString(fl.Field().String())
	})
	return v
}

// parseWeight reads a plain decimal exactly. Fractions like "1/2" are rejected.
func parseWeight(s string) (*big.Rat, bool) {
	if !decimalPattern.MatchString(s) {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

// generateRequestFromForm reads the parameters from the query string or a
// urlencoded body.
func generateRequestFromForm(form url.Values) GenerateRequest {
	return GenerateRequest{
		OriginCountryID:      form.Get("origin_country_id"),
		DestinationCountryID: form.Get("destination_country_id"),
		Weight:               form.Get("weight"),
		CreatedAt:            form.Get("created_at"),
		CustomerID:           form.Get("customer_id"),
		CustomerName:         form.Get("customer_name"),
		CustomerSlug:         form.Get("customer_slug"),
	}
}

// Validate returns FieldErrors when any parameter is rejected.
func (r *GenerateRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe.Field(), fe.Tag())
	}
	return out
}

func messageFor(field, tag string) string {
	msgs := fieldMessages[field]
	if msg, ok := msgs[tag]; ok {
		return msg
	}
	return msgs["required"]
}

// ToModel maps validated parameters to the encoder input. Values pass through
// verbatim, including the weight's textual form.
func (r *GenerateRequest) ToModel() models.GenerationRequest {
	return models.GenerationRequest{
		OriginCountryID:      r.OriginCountryID,
		DestinationCountryID: r.DestinationCountryID,
		Weight:               r.Weight,
		CreatedAt:            r.CreatedAt,
		CustomerID:           r.CustomerID,
		CustomerName:         r.CustomerName,
		CustomerSlug:         r.CustomerSlug,
	}
}
