package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestInstrumentTransport_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := NewRegistry()
	client := &http.Client{Transport: InstrumentTransport(nil, reg, nil)}

	resp, err := client.Get(srv.URL + "/v3/instruments/EUR_USD/candles")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "fxlab_http_requests_total" {
			for _, m := range mf.GetMetric() {
				for _, label := range m.GetLabel() {
					if label.GetName() == "status" && label.GetValue() == "2xx" {
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("expected fxlab_http_requests_total with status 2xx")
	}
}

func TestInstrumentTransport_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)
	logger := zap.New(core)

	reg := NewRegistry()
	client := &http.Client{Transport: InstrumentTransport(failingTransport{}, reg, logger)}

	_, err := client.Get("http://broker.invalid/v3/accounts")
	if err == nil {
		t.Fatal("expected error")
	}

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	if logEntry["host"] != "broker.invalid" {
		t.Errorf("expected host broker.invalid, got %v", logEntry["host"])
	}
	if logEntry["request_id"] == "" || logEntry["request_id"] == nil {
		t.Error("expected request_id in log entry")
	}
	if logEntry["status"].(float64) != 0 {
		t.Errorf("expected status 0, got %v", logEntry["status"])
	}
}

func TestInstrumentTransport_KeepsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	}))
	defer srv.Close()

	client := &http.Client{Transport: InstrumentTransport(nil, nil, nil)}
	req, _ := http.NewRequest("GET", srv.URL, nil)
	req.Header.Set("X-Request-ID", "fixed-id")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got != "fixed-id" {
		t.Errorf("expected fixed-id, got %q", got)
	}
}
