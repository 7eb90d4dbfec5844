package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{http.StatusBadRequest, ErrorClassClient},
		{http.StatusUnauthorized, ErrorClassClient},
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusTooManyRequests, ErrorClassRateLimit},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusBadGateway, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.expected {
			t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "status error",
			err: &APIError{
				StatusCode: 404,
				Class:      ErrorClassClient,
				Endpoint:   "/games",
				Message:    "Not found",
			},
			expected: "CBBD client error (status 404) on /games: Not found",
		},
		{
			name: "network error with cause",
			err: &APIError{
				Class:    ErrorClassNetwork,
				Endpoint: "/teams",
				Message:  "request failed",
				Err:      errors.New("connection refused"),
			},
			expected: "CBBD network error on /teams: request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Sentinels(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := fmt.Errorf("Games.List: %w", &APIError{StatusCode: tt.status, Class: ClassifyStatus(tt.status)})
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
		})
	}

	plain := &APIError{StatusCode: http.StatusInternalServerError, Class: ErrorClassServer}
	for _, sentinel := range []error{ErrAuth, ErrNotFound, ErrRateLimited} {
		if errors.Is(plain, sentinel) {
			t.Errorf("500 error matched %v", sentinel)
		}
	}
}

func TestAPIError_UnwrapCause(t *testing.T) {
	err := &APIError{Class: ErrorClassNetwork, Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("cause not reachable through errors.Is")
	}

	var apiErr *APIError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &apiErr) || apiErr.Class != ErrorClassNetwork {
		t.Error("errors.As did not find the APIError")
	}
}

func TestErrorClassOf(t *testing.T) {
	if got := errorClassOf(&APIError{Class: ErrorClassServer}); got != ErrorClassServer {
		t.Errorf("errorClassOf(APIError) = %q", got)
	}
	if got := errorClassOf(errors.New("plain")); got != "" {
		t.Errorf("errorClassOf(plain) = %q, want empty", got)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "season", Value: 1800, Reason: "must be between 1900 and 2100"}
	if got := err.Error(); got != "invalid season 1800: must be between 1900 and 2100" {
		t.Errorf("Error() = %q", got)
	}
}
