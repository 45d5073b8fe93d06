package testutil

import (
	"net/http"
	"time"

	"creditrisk/pkg/requestcontext"
)

// WithRequestID sets the request id the requestid middleware would assign.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithClientIP sets the caller address the metadata middleware would record.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent()))
}

// WithTime pins the request's "now" for deterministic timestamps.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
