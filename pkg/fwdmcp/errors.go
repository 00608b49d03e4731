package fwdmcp

import (
	"fmt"
	"strings"
)

// MCPError represents a structured error response for MCP tools.
// Provides actionable information to help AI agents recover from errors.
type MCPError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Diagnosis explains the likely cause
	Diagnosis string `json:"diagnosis,omitempty"`

	// SuggestedActions lists recommended next steps
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`

	RetryRecommended bool `json:"retry_recommended"`

	Context map[string]interface{} `json:"context,omitempty"`
}

// SuggestedAction represents a recommended action to resolve an error
type SuggestedAction struct {
	// Action is the tool name to call
	Action string                 `json:"action,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
	Hint   string                 `json:"hint,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes
const (
	ErrCodeAPIUnavailable = "api_unavailable"
	ErrCodeTimeout        = "timeout"
	ErrCodeNotReady       = "not_ready"
	ErrCodeInvalidInput   = "invalid_input"
	ErrCodeInternal       = "internal_error"
)

// NewAPIUnavailableError creates an error when the REST API is not reachable
func NewAPIUnavailableError(apiURL string, cause error) *MCPError {
	ctx := map[string]interface{}{"api_url": apiURL}
	if cause != nil {
		ctx["error"] = cause.Error()
	}
	return &MCPError{
		Code:      ErrCodeAPIUnavailable,
		Message:   fmt.Sprintf("Cannot connect to keybusfwd API at %s", apiURL),
		Diagnosis: "keybusfwd may not be running, or it was started without --api",
		SuggestedActions: []SuggestedAction{
			{Hint: "Start the bridge with the API enabled: keybusfwd bridge --api"},
			{Hint: "Point the MCP server at it: keybusfwd mcp --api-url http://127.0.0.1:8080/api"},
		},
		RetryRecommended: true,
		Context:          ctx,
	}
}

// NewTimeoutError creates an error for a request that did not finish in time
func NewTimeoutError(operation string) *MCPError {
	return &MCPError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Operation '%s' timed out", operation),
		Diagnosis: "The bridge is busy or the API address is unreachable",
		SuggestedActions: []SuggestedAction{
			{Action: "get_status", Hint: "Check the bridge is up"},
		},
		RetryRecommended: true,
		Context:          map[string]interface{}{"operation": operation},
	}
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(field, value, requirement string) *MCPError {
	return &MCPError{
		Code:      ErrCodeInvalidInput,
		Message:   fmt.Sprintf("Invalid value for '%s': %s", field, value),
		Diagnosis: requirement,
		SuggestedActions: []SuggestedAction{
			{Hint: fmt.Sprintf("Provide a valid value for '%s': %s", field, requirement)},
		},
		RetryRecommended: false,
		Context: map[string]interface{}{
			"field":       field,
			"value":       value,
			"requirement": requirement,
		},
	}
}

// ClassifyError maps a client error onto an MCPError
func ClassifyError(err error, apiURL, operation string) *MCPError {
	if err == nil {
		return nil
	}
	if mcpErr, ok := err.(*MCPError); ok {
		return mcpErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return NewAPIUnavailableError(apiURL, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return NewTimeoutError(operation)
	case strings.Contains(msg, "status 503"):
		return &MCPError{
			Code:             ErrCodeNotReady,
			Message:          "keybusfwd is running but this data is not available yet",
			Diagnosis:        err.Error(),
			RetryRecommended: true,
			Context:          map[string]interface{}{"operation": operation},
		}
	default:
		return &MCPError{
			Code:             ErrCodeInternal,
			Message:          err.Error(),
			RetryRecommended: false,
			Context:          map[string]interface{}{"operation": operation},
		}
	}
}
