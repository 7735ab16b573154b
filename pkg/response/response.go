package response

// ErrorResponse is the body for not-found, malformed and failed-decision responses.
type ErrorResponse struct {
	Error string `json:"error" example:"Product not found"`
}

// ValidationResponse carries field-level messages, keyed by field name
// ("base" for errors not tied to a field).
type ValidationResponse struct {
	Errors map[string][]string `json:"errors"`
}

// MessageResponse is the body of a successful approval decision.
type MessageResponse struct {
	Message string `json:"message" example:"Product approved successfully."`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status" example:"OK"`
}

// Error returns a single-message error body
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// Fields returns a validation body from grouped field messages
func Fields(errs map[string][]string) ValidationResponse {
	return ValidationResponse{Errors: errs}
}

// Base returns a validation body with a single record-level message
func Base(msg string) ValidationResponse {
	return ValidationResponse{Errors: map[string][]string{"base": {msg}}}
}

// Message returns a success message body
func Message(msg string) MessageResponse {
	return MessageResponse{Message: msg}
}
