package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// BuildErrorResponse maps any error to its HTTP status and client-safe body.
func BuildErrorResponse(err error) (int, ErrorResponse) {
	return application.ToHTTPStatus(err), ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    application.ToErrorCode(err),
			Message: application.ToErrorMessage(err),
		},
	}
}

// WriteError writes the error envelope. Server-side failures are logged with the full error.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode, response := BuildErrorResponse(err)
	if statusCode >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			"status", statusCode,
			"code", response.Error.Code,
			"category", application.CategorizeError(err),
			"error", err)
	}
	WriteJSON(w, statusCode, response)
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func WriteSuccess(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, SuccessResponse{Success: true, Data: data})
}

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
