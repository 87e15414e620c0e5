package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deploykit/stagegate/internal/domain"
)

// toCanonicalError converts any error to a domain.Error. If the error is
// already canonical it is returned directly; anything else is wrapped as a
// store failure.
func toCanonicalError(err error) *domain.Error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr
	}
	return domain.ErrStoreFailure(err.Error())
}

// writeError translates a canonical error to an HTTP status and JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	derr := toCanonicalError(err)
	AddError(r.Context(), derr)

	body, _ := json.Marshal(map[string]any{
		"error": derr,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(derr.HTTPStatusCode())
	w.Write(body)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
