package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is the documented wire-level error envelope: {error, code, details?}.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// respondError maps err to its documented HTTP status and wire code. A
// plain (non-apperrors) error is treated as an internal error.
func respondError(w http.ResponseWriter, err error) {
	status, code := statusAndCode(err)
	respondJSON(w, status, errorBody{Error: err.Error(), Code: string(code)})
}

// respondErrorCode forces a specific status/code pair, for handlers that
// classify the failure themselves (bad path parameter, missing route data)
// rather than deriving it from an *apperrors.Error.
func respondErrorCode(w http.ResponseWriter, status int, code apperrors.Code, message string) {
	respondJSON(w, status, errorBody{Error: message, Code: string(code)})
}

func statusAndCode(err error) (int, apperrors.Code) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeInvalidDocID, apperrors.CodeValidation:
			return http.StatusBadRequest, appErr.Code
		case apperrors.CodeDocumentNotFound, apperrors.CodeImageNotFound:
			return http.StatusNotFound, appErr.Code
		case apperrors.CodeFileTooLarge:
			return http.StatusRequestEntityTooLarge, appErr.Code
		case apperrors.CodeUnsupportedType:
			return http.StatusUnsupportedMediaType, appErr.Code
		case apperrors.CodeUploadFailed, apperrors.CodeDatabaseError:
			return http.StatusBadGateway, appErr.Code
		default:
			return http.StatusInternalServerError, appErr.Code
		}
	}
	return http.StatusInternalServerError, apperrors.CodeInternal
}
