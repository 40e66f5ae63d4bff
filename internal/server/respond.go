package server

import (
	"encoding/json"
	"net/http"

	"github.com/vango-dev/widgets/internal/errors"
)

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	Location   string `json:"location,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// writeError writes err, using the status of its error code when it has one.
func writeError(w http.ResponseWriter, err error) {
	we, ok := errors.As(err)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	body := errorBody{
		Code:       we.Code,
		Message:    we.Message,
		Detail:     we.Detail,
		Suggestion: we.Suggestion,
	}
	if we.Location != nil {
		body.Location = we.Location.String()
	}
	writeJSON(w, statusFor(we.Code), map[string]errorBody{"error": body})
}

func statusFor(code string) int {
	switch code {
	case "E201", "E220":
		return http.StatusUnprocessableEntity
	case "E221":
		return http.StatusConflict
	case "E230":
		return http.StatusNotFound
	case "E210":
		return http.StatusBadGateway
	case "E121", "E240":
		return http.StatusServiceUnavailable
	case "E211":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
