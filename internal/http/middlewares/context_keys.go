package middlewares

const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.user_id"
	CtxEmail     = "auth.email"
)
