// Package helpers contiene funciones auxiliares compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
)

// maxBodyBytes limita el body de cualquier request (1MB).
const maxBodyBytes = 1 << 20

// IsJSON indica si el request declara un body JSON.
func IsJSON(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// ReadJSON decodifica JSON de forma tolerante (no falla por campos desconocidos).
// Un body vacío no es error.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if !IsJSON(r) {
		return httperrors.ErrInvalidJSON.WithDetail("Content-Type must be application/json")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return httperrors.ErrInvalidJSON.WithCause(err)
	}
	return nil
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
