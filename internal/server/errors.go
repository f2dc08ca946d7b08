package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/authorization"
	companydomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	generationdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	publicdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/domain"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, generationdomain.ErrRuleExists),
		errors.Is(err, quotedomain.ErrQuoteNotEditable),
		errors.Is(err, publicdomain.ErrQuoteFinalized):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, publicdomain.ErrAlreadyAccepted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "quote already accepted",
			Errors: []ValidationError{
				{Field: "packageId", Code: "QUOTE_ALREADY_ACCEPTED", Message: "quote already accepted with a different package"},
			},
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationSentinels = map[error]string{
	ErrInvalidRequest:                        "invalid_request",
	quotedomain.ErrInvalidQuote:              "invalid_quote",
	quotedomain.ErrInvalidCustomer:           "invalid_customer",
	quotedomain.ErrInvalidItem:               "invalid_item",
	quotedomain.ErrInvalidPackage:            "invalid_package",
	quotedomain.ErrInvalidRecipient:          "invalid_recipient",
	publicdomain.ErrUnknownItem:              "unknown_item",
	publicdomain.ErrInvalidPackage:           "invalid_package",
	pricingdomain.ErrInvalidName:             "invalid_name",
	pricingdomain.ErrInvalidCode:             "invalid_code",
	pricingdomain.ErrInvalidPrice:            "invalid_price",
	pricingdomain.ErrInvalidID:               "invalid_id",
	companydomain.ErrInvalidName:             "invalid_name",
	companydomain.ErrInvalidID:               "invalid_id",
	requirementsdomain.ErrInvalidRoomType:    "invalid_room_type",
	requirementsdomain.ErrInvalidFinishLevel: "invalid_finish_level",
	requirementsdomain.ErrInvalidArea:        "invalid_area",
	requirementsdomain.ErrListTooLong:        "list_too_long",
	requirementsdomain.ErrNotesTooLong:       "notes_too_long",
	requirementsdomain.ErrInvalidQuote:       "invalid_quote",
	requirementsdomain.ErrInvalidID:          "invalid_id",
	generationdomain.ErrInvalidKey:           "invalid_key",
	generationdomain.ErrInvalidRules:         "invalid_rules",
	generationdomain.ErrInvalidProfile:       "invalid_profile",
	generationdomain.ErrUnknownRef:           "unknown_ref",
	generationdomain.ErrEmptyGeneration:      "empty_generation",
	generationdomain.ErrInvalidID:            "invalid_id",
	tuningdomain.ErrInvalidQuote:             "invalid_quote",
	tuningdomain.ErrInvalidItemRef:           "invalid_item_ref",
	tuningdomain.ErrInvalidRuleKey:           "invalid_rule_key",
	authdomain.ErrInvalidRole:                "invalid_role",
}

func isValidationError(err error) bool {
	for sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func validationErrorCode(err error) string {
	for sentinel, code := range validationSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "invalid_request"
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_customer":
		return "customer_name"
	case "invalid_recipient":
		return "toEmail"
	case "unknown_item":
		return "selectedItemIds"
	case "invalid_package":
		return "packageId"
	case "invalid_name":
		return "name"
	case "invalid_code":
		return "code"
	case "invalid_price":
		return "unit_price"
	case "invalid_room_type":
		return "room_type"
	case "invalid_finish_level":
		return "finish_level"
	case "invalid_area":
		return "area_m2"
	case "invalid_key", "invalid_rule_key":
		return "key"
	case "invalid_rules":
		return "rules"
	case "invalid_profile":
		return "profile_id"
	case "invalid_role":
		return "role"
	case "invalid_id", "invalid_quote":
		return "id"
	default:
		return "request"
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "unknown_item":
		return "selection references an unknown item"
	case "invalid_area":
		return "area_m2 must be greater than 0 and at most 10000"
	case "list_too_long":
		return "list fields accept at most 50 entries"
	case "notes_too_long":
		return "notes accept at most 2000 characters"
	default:
		return "invalid " + validationErrorField(code)
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, authdomain.ErrUserNotFound) ||
		errors.Is(err, companydomain.ErrNotFound) ||
		errors.Is(err, pricingdomain.ErrNotFound) ||
		errors.Is(err, quotedomain.ErrQuoteNotFound) ||
		errors.Is(err, quotedomain.ErrProfileNotFound) ||
		errors.Is(err, requirementsdomain.ErrNotFound) ||
		errors.Is(err, generationdomain.ErrNotFound) ||
		errors.Is(err, generationdomain.ErrRequirementsNotFound) ||
		errors.Is(err, generationdomain.ErrNoGenerationRule)
}

// classifyErrorForLog buckets handler errors for the request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
