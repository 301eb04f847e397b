package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/adrewards/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper with the money tags registered:
// "money" accepts a decimal string that is positive once rounded to cents,
// "money_gte0" a non-negative one. Both cap at models.MaxMoney.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, ok := parseCents(fl.Field().String())
		return ok && d.IsPositive()
	})
	_ = v.RegisterValidation("money_gte0", func(fl validator.FieldLevel) bool {
		d, ok := parseCents(fl.Field().String())
		return ok && !d.IsNegative()
	})
	return &ValidationHelper{
		validator: v,
	}
}

func parseCents(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	d = models.RoundMoney(d)
	return d, d.LessThanOrEqual(models.MaxMoney)
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var fieldErrs validator.ValidationErrors
	if validationErr != nil && errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
