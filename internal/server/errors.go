package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
	"github.com/smallbiznis/stocksense/pkg/db"
	"gorm.io/gorm"
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

	if syncErr := asSyncError(err); syncErr != nil {
		return mapSyncError(syncErr)
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// mapSyncError keeps the fetch/reconcile distinction on the wire: an
// upstream Shopify failure is a bad gateway, not our fault.
func mapSyncError(syncErr *syncdomain.SyncError) (int, errorPayload) {
	switch syncErr.Kind {
	case syncdomain.KindInvalidInput:
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: syncErr.Message,
		}
	case syncdomain.KindFetchFailed:
		return http.StatusBadGateway, errorPayload{
			Type:    "fetch_failed",
			Message: "shopify fetch failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "reconcile_failed",
			Message: "sync failed",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	var domainErr *invdomain.ValidationErrors
	if errors.As(err, &domainErr) && domainErr != nil {
		converted := &ValidationErrors{Errors: make([]ValidationError, 0, len(domainErr.Errors))}
		for _, e := range domainErr.Errors {
			converted.Errors = append(converted.Errors, ValidationError{
				Field:   e.Field,
				Code:    e.Code,
				Message: e.Message,
			})
		}
		return converted
	}
	return nil
}

func asSyncError(err error) *syncdomain.SyncError {
	var syncErr *syncdomain.SyncError
	if errors.As(err, &syncErr) && syncErr != nil {
		return syncErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, shopdomain.ErrInvalidDomain),
		errors.Is(err, shopdomain.ErrInvalidToken),
		errors.Is(err, shopdomain.ErrInvalidID),
		errors.Is(err, invdomain.ErrInvalidShop),
		errors.Is(err, invdomain.ErrInvalidID),
		errors.Is(err, invdomain.ErrInvalidMinimum):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, shopdomain.ErrNotFound),
		errors.Is(err, invdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if syncErr := asSyncError(err); syncErr != nil {
		return "sync_error", string(syncErr.Kind)
	}
	if asValidationErrors(err) != nil || isValidationError(err) {
		return "validation_error", err.Error()
	}
	if isNotFoundError(err) {
		return "not_found", "not_found"
	}
	return "internal_error", "internal_error"
}
