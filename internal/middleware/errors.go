package middleware

import (
	"fmt"
	"net/http"
)

// writeError writes a JSON error response using the API's flat error
// envelope. Middleware cannot depend on the handler package, so the
// envelope is built here; the shape must stay in sync with
// dto.ErrorResponse.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":%q,"code":%q}`, message, code)
}
