package service

import (
	"context"
	"net/http"
	"sync"
)

// The request ID the client supplied (via the request_id query parameter or
// a handler calling SetRequestID) travels in a mutable holder so handlers
// can set it after the response wrapper has captured the context.
type requestIDHolder struct {
	mu sync.Mutex
	id string
}

type holderKey struct{}

func withRequestIDHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, holderKey{}, &requestIDHolder{})
}

// SetRequestID records the client-facing request ID for this request.
// It is a no-op on requests that did not pass through a wrapped handler.
func SetRequestID(r *http.Request, id string) {
	if h, ok := r.Context().Value(holderKey{}).(*requestIDHolder); ok {
		h.mu.Lock()
		h.id = id
		h.mu.Unlock()
	}
}

// GetRequestID returns the client-facing request ID, or "" when unset.
func GetRequestID(r *http.Request) string {
	if h, ok := r.Context().Value(holderKey{}).(*requestIDHolder); ok {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.id
	}
	return ""
}
