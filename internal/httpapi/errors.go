package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIError is the body of every non-2xx JSON response. Code is a stable
// machine-readable tag ("busy", "invalid_config", a pipeline stage);
// Message is for humans.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
	})
}
