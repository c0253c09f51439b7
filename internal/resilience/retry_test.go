package resilience

import (
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	}
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := Retry(func() error {
		attempts++
		return nil
	}, fastRetryConfig(), nil)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetry_FailureThenSuccess(t *testing.T) {
	attempts := 0
	err := Retry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fastRetryConfig(), nil)

	if err != nil {
		t.Errorf("Expected no error after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_MaxAttempts(t *testing.T) {
	config := fastRetryConfig()
	config.MaxAttempts = 2

	attempts := 0
	err := Retry(func() error {
		attempts++
		return errors.New("persistent error")
	}, config, nil)

	if err == nil {
		t.Error("Expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	attempts := 0
	err := Retry(func() error {
		attempts++
		return errors.New("bad request")
	}, fastRetryConfig(), func(err error) bool {
		return false
	})

	if err == nil {
		t.Error("Expected error to be returned")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetry_NilConfigUsesDefaults(t *testing.T) {
	err := Retry(func() error { return nil }, nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second

	if got := CalculateBackoff(0, initial, max, 2.0); got != 100*time.Millisecond {
		t.Errorf("Attempt 0: expected 100ms, got %v", got)
	}
	if got := CalculateBackoff(1, initial, max, 2.0); got != 200*time.Millisecond {
		t.Errorf("Attempt 1: expected 200ms, got %v", got)
	}
	if got := CalculateBackoff(2, initial, max, 2.0); got != 400*time.Millisecond {
		t.Errorf("Attempt 2: expected 400ms, got %v", got)
	}
	// Capped at the maximum
	if got := CalculateBackoff(10, initial, max, 2.0); got != max {
		t.Errorf("Attempt 10: expected cap at %v, got %v", max, got)
	}
}

func TestIsRetryableNetworkError(t *testing.T) {
	retryable := []error{
		errors.New("dial tcp: connection refused"),
		errors.New("read: connection reset by peer"),
		errors.New("context deadline exceeded"),
		errors.New("Post \"http://localhost:8080\": i/o timeout"),
		errors.New("429: Rate Limit exceeded"),
		errors.New("service unavailable"),
	}
	for _, err := range retryable {
		if !IsRetryableNetworkError(err) {
			t.Errorf("Expected %q to be retryable", err)
		}
	}

	notRetryable := []error{
		nil,
		errors.New("invalid API key"),
		errors.New("400 bad request"),
	}
	for _, err := range notRetryable {
		if IsRetryableNetworkError(err) {
			t.Errorf("Expected %v to not be retryable", err)
		}
	}
}
