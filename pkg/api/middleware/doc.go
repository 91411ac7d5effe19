// Package middleware provides the HTTP middleware used by the node's API.
//
//   - recovery.go: panic recovery
//   - request_id.go: request id generation and propagation
//   - logging.go: structured request logging
//   - metrics.go: per-route request metrics
//   - body_limit.go: request body size limiting
//
// All middleware follows the standard pattern: func(http.Handler) http.Handler
//
//	handler := middleware.PanicRecovery(logger)(router)
//	handler = middleware.Logging(logger, middleware.GetRequestID)(handler)
//	handler = middleware.RequestID()(handler)
package middleware
