package metrics

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// transport wraps an http.RoundTripper to record metrics and log requests.
type transport struct {
	next   http.RoundTripper
	reg    *Registry
	logger *zap.Logger
}

// InstrumentTransport returns a RoundTripper that tags each request with an
// X-Request-ID, records outbound HTTP metrics in reg and logs the exchange.
// A nil next uses http.DefaultTransport; a nil reg or logger disables that part.
func InstrumentTransport(next http.RoundTripper, reg *Registry, logger *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transport{next: next, reg: reg, logger: logger}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", requestID)
	}

	if t.reg != nil {
		t.reg.InFlightInc()
		defer t.reg.InFlightDec()
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if t.reg != nil {
		t.reg.RecordRequest(req.URL.Host, status, duration.Seconds())
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
	}
	if err != nil {
		t.logger.Warn("outbound request failed", append(fields, zap.Error(err))...)
	} else {
		t.logger.Debug("outbound request", fields...)
	}

	return resp, err
}
