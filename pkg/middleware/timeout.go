package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/yoavkarmi/songdex/pkg/errors"
	"github.com/yoavkarmi/songdex/pkg/logger"
)

const (
	writerUnclaimed = iota
	writerHandler
	writerTimeout
)

// Timeout cancels the request context after d. If the handler has not begun
// writing by then, the client receives a 504 in the standard error envelope;
// once either side starts a response, the other side's writes are discarded.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if !dw.state.CompareAndSwap(writerUnclaimed, writerTimeout) {
					return
				}
				logger.FromContext(r.Context()).Warn("request deadline exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", d,
				)
				appErr := errors.New(errors.ErrTimeout, http.StatusGatewayTimeout, "request deadline exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": appErr.Error()})
			}
		})
	}
}

// deadlineWriter hands the underlying ResponseWriter to whichever side writes
// first. A handler that loses the race keeps running but its output goes
// nowhere.
type deadlineWriter struct {
	http.ResponseWriter
	state atomic.Int32
}

func (dw *deadlineWriter) claim() bool {
	return dw.state.CompareAndSwap(writerUnclaimed, writerHandler) ||
		dw.state.Load() == writerHandler
}

func (dw *deadlineWriter) WriteHeader(code int) {
	if !dw.claim() {
		return
	}
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	if !dw.claim() {
		return len(b), nil
	}
	return dw.ResponseWriter.Write(b)
}
