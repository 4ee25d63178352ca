package dto

// ErrorResponse represents an API error. Field is set only for
// validation failures and names the offending request field. The
// middleware package writes the same envelope by hand; the two must
// stay in sync.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}
