package dto

// ErrorResponse is the body of every error the gateway produces itself.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitJobResponse is returned once a job is on the queue.
type SubmitJobResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// LoginRequest is forwarded to the accounts login endpoint.
type LoginRequest struct {
	Email    any `json:"email"`
	Password any `json:"password"`
}

// RegisterRequest is forwarded to the accounts register endpoint.
type RegisterRequest struct {
	Email     any `json:"email"`
	Password  any `json:"password"`
	FirstName any `json:"first_name"`
	LastName  any `json:"last_name"`
}

// VerifyTokenRequest is sent to the accounts token verification endpoint.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// HealthResponse is served by the ops listener.
type HealthResponse struct {
	Status   string `json:"status"`
	RabbitMQ string `json:"rabbitmq"`
}
