package middlewares

const (
	// CtxRequestID is the gin context key carrying the request id.
	CtxRequestID = "request_id"
)
