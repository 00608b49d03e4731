package fwdmcp

import (
	"errors"
	"strings"
	"testing"
)

func TestMCPError_Error(t *testing.T) {
	err := NewInvalidInputError("kind", "zones", "one of panel, module")
	if err.Error() != "invalid_input: Invalid value for 'kind': zones" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if err.RetryRecommended {
		t.Error("Invalid input should not recommend a retry")
	}
}

func TestNewAPIUnavailableError_NilCause(t *testing.T) {
	err := NewAPIUnavailableError("http://x/api", nil)
	if _, ok := err.Context["error"]; ok {
		t.Error("Expected no error context without a cause")
	}
	if !strings.Contains(err.SuggestedActions[0].Hint, "--api") {
		t.Errorf("Expected hint to mention --api, got %q", err.SuggestedActions[0].Hint)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"refused", errors.New("dial tcp: connection refused"), ErrCodeAPIUnavailable},
		{"no host", errors.New("dial tcp: lookup keybus: no such host"), ErrCodeAPIUnavailable},
		{"timeout", errors.New("Client.Timeout exceeded while awaiting headers"), ErrCodeTimeout},
		{"deadline", errors.New("context deadline exceeded"), ErrCodeTimeout},
		{"not ready", errors.New("API returned status 503: {}"), ErrCodeNotReady},
		{"other", errors.New("failed to decode response"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "http://x/api", "get_status")
			if got == nil || got.Code != tt.code {
				t.Errorf("ClassifyError(%q) = %v, want code %s", tt.err, got, tt.code)
			}
		})
	}

	if ClassifyError(nil, "", "") != nil {
		t.Error("Expected nil for nil error")
	}

	orig := NewTimeoutError("x")
	if ClassifyError(orig, "", "") != orig {
		t.Error("Expected MCPError to pass through")
	}
}
