package http

import "time"

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the liveness check body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// DeepHealthResponse reports dependency state for /healthz?deep=true.
type DeepHealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
	LLM    string `json:"llm"`
	Rod    string `json:"rod"`
}
