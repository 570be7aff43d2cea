package constant

const (
	ContextKeyRequestID = "requestid"
	ContextKeyBody      = "body"

	RequestIDHeader = "X-Request-ID"
)
