package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation", Validation("Missing required fields: fileName", "fileName"), http.StatusBadRequest, ErrCodeInvalidInput, "Missing required fields: fileName"},
		{"authentication", Unauthenticated("Invalid or expired token"), http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid or expired token"},
		{"authorization", Forbidden("Insufficient permissions"), http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions"},
		{"not found", NotFound("Alert not found"), http.StatusNotFound, ErrCodeNotFound, "Alert not found"},
		{"conflict", Conflict("busy"), http.StatusConflict, ErrCodeConflict, "busy"},
		{"upstream", Upstream("Failed to generate upload URL", fmt.Errorf("dial tcp: refused")), http.StatusInternalServerError, ErrCodeInternal, "Failed to generate upload URL"},
		{"wrapped upstream", fmt.Errorf("ingest: %w", Upstream("Extraction failed", nil)), http.StatusInternalServerError, ErrCodeInternal, "Extraction failed"},
		{"unknown", fmt.Errorf("pq: password authentication failed"), http.StatusInternalServerError, ErrCodeInternal, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Respond(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, body.Code)
			}
			if body.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, body.Message)
			}
		})
	}
}

func TestRespond_ValidationDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	Respond(rr, Validation("Missing required fields: clientId, userId", "clientId", "userId"))

	var body struct {
		Details struct {
			Fields []string `json:"fields"`
		} `json:"details"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Details.Fields) != 2 || body.Details.Fields[0] != "clientId" {
		t.Errorf("Expected field details, got %v", body.Details.Fields)
	}
}

func TestIsUpstream(t *testing.T) {
	if !IsUpstream(Upstream("db down", nil)) {
		t.Error("Expected upstream error to be upstream")
	}
	if IsUpstream(Forbidden("no")) {
		t.Error("Expected authorization error not to be upstream")
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Conflict("Docket is already being processed"), "Docket is already being processed"},
		{Upstream("Failed to save docket", fmt.Errorf("pq: connection reset")), "Failed to save docket"},
		{fmt.Errorf("dial tcp: refused"), "Internal server error"},
	}
	for _, tt := range tests {
		if got := PublicMessage(tt.err); got != tt.want {
			t.Errorf("PublicMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
