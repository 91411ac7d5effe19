package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/google/uuid"
)

// --- BodySizeLimit Tests ---

func TestBodySizeLimit_AllowsSmallRequest(t *testing.T) {
	handler := BodySizeLimit(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))

	req := httptest.NewRequest("PUT", "/data/x", strings.NewReader("small body"))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "small body" {
		t.Errorf("Body = %q", rr.Body.String())
	}
}

func TestBodySizeLimit_RejectsLargeContentLength(t *testing.T) {
	handler := BodySizeLimit(100)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for oversized request")
	}))

	req := httptest.NewRequest("PUT", "/data/x", strings.NewReader(""))
	req.ContentLength = 1000

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
}

func TestBodySizeLimit_LimitsActualBody(t *testing.T) {
	handler := BodySizeLimit(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "Body too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("PUT", "/data/x", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
}

// --- PanicRecovery Tests ---

func TestPanicRecovery_HandlesNormalRequest(t *testing.T) {
	handler := PanicRecovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestPanicRecovery_RecoversPanic(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.DebugLevel)

	handler := PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "test panic") {
		t.Error("Response should not contain panic message")
	}

	var entry logging.LogEntry
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("panic was not logged as JSON: %v", err)
	}
	if entry.Level != "ERROR" || entry.Fields["panic"] != "test panic" {
		t.Errorf("unexpected log entry: %+v", entry)
	}
}

// --- Logging Tests ---

func TestLogging_WithRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.DebugLevel)
	getRequestID := func(r *http.Request) string { return "test-id-123" }

	handler := Logging(logger, getRequestID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/data/missing", nil))

	var entry logging.LogEntry
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	if entry.Level != "DEBUG" {
		t.Errorf("Level = %s, want DEBUG", entry.Level)
	}
	if entry.Fields["request_id"] != "test-id-123" {
		t.Errorf("request_id = %v", entry.Fields["request_id"])
	}
	if entry.Fields["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v", entry.Fields["status"])
	}
}

func TestLogging_ServerErrorsAtWarn(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.InfoLevel)

	handler := Logging(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/data/x/1", nil))

	var entry logging.LogEntry
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	if entry.Level != "WARN" {
		t.Errorf("Level = %s, want WARN", entry.Level)
	}
	if _, ok := entry.Fields["request_id"]; ok {
		t.Error("request_id should be absent without an extractor")
	}
}

func TestLogging_NilLogger(t *testing.T) {
	handler := Logging(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

// --- RequestID Tests ---

func TestRequestID_GeneratesNew(t *testing.T) {
	var capturedID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("Expected a UUID request ID, got %q", capturedID)
	}
	if rr.Header().Get(RequestIDHeader) != capturedID {
		t.Errorf("Response header should contain request ID")
	}
}

func TestRequestID_UsesClientProvided(t *testing.T) {
	var capturedID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "client-provided-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if capturedID != "client-provided-id" {
		t.Errorf("Expected 'client-provided-id', got '%s'", capturedID)
	}
}

func TestRequestID_SanitizesInput(t *testing.T) {
	var capturedID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "id<script>alert('xss')</script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if strings.ContainsAny(capturedID, "<>'\"") {
		t.Errorf("Request ID should be sanitized, got '%s'", capturedID)
	}
}

func TestRequestID_TruncatesLong(t *testing.T) {
	var capturedID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", 200))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(capturedID) != maxRequestIDLen {
		t.Errorf("Request ID should be truncated to %d chars, got %d", maxRequestIDLen, len(capturedID))
	}
}

func TestRequestID_AllInvalidGeneratesNew(t *testing.T) {
	var capturedID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<<>>")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("Expected generated UUID, got %q", capturedID)
	}
}

func TestGetRequestID_NoContext(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest("GET", "/", nil)); id != "" {
		t.Errorf("Expected empty string for request without ID, got '%s'", id)
	}
}

func TestSanitizeRequestID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc123", "abc123"},
		{"abc-123_456.xyz", "abc-123_456.xyz"},
		{"<script>", "script"},
		{"foo bar", "foobar"},
		{"test@email.com", "testemail.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := sanitizeRequestID(tt.input); result != tt.expected {
				t.Errorf("sanitizeRequestID(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// --- Metrics Tests ---

type mockMetricsRecorder struct {
	requests []string
	inFlight int
}

func (m *mockMetricsRecorder) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.requests = append(m.requests, method+" "+route+" "+status)
}

func (m *mockMetricsRecorder) IncHTTPRequestsInFlight() {
	m.inFlight++
}

func (m *mockMetricsRecorder) DecHTTPRequestsInFlight() {
	m.inFlight--
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	routeOf := func(*http.Request) string { return "/data/{key}" }

	handler := Metrics(recorder, routeOf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "key not found on node 1", http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/data/secret-key", nil))

	if len(recorder.requests) != 1 {
		t.Fatalf("Expected 1 recorded request, got %d", len(recorder.requests))
	}
	if recorder.requests[0] != "GET /data/{key} 404" {
		t.Errorf("Unexpected recorded request: %s", recorder.requests[0])
	}
}

func TestMetrics_UnknownRoute(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	handler := Metrics(recorder, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))

	if recorder.requests[0] != "GET unknown 200" {
		t.Errorf("Unexpected recorded request: %s", recorder.requests[0])
	}
}

func TestMetrics_TracksInFlight(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	var inFlightDuringRequest int

	handler := Metrics(recorder, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlightDuringRequest = recorder.inFlight
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if inFlightDuringRequest != 1 {
		t.Errorf("Expected in-flight to be 1 during request, got %d", inFlightDuringRequest)
	}
	if recorder.inFlight != 0 {
		t.Errorf("Expected in-flight to be 0 after request, got %d", recorder.inFlight)
	}
}

func TestMetrics_NilRecorder(t *testing.T) {
	handler := Metrics(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
