package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/venturematch/venture-match/internal/apperrors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeJSON parses a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// RespondJSON writes a JSON payload with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// RespondError maps an error to its HTTP status and stable error code.
func RespondError(w http.ResponseWriter, err error) {
	RespondJSON(w, apperrors.HTTPStatus(err), errorBody{
		Code:    apperrors.Code(err),
		Message: apperrors.Message(err),
	})
}
