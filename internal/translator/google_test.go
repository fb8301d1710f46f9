package translator

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/lingopool/lingopool/internal/translation"
)

func TestGoogle_Name(t *testing.T) {
	tr := NewGoogle(GoogleConfig{})
	if tr.Name() != "google" {
		t.Errorf("expected 'google', got %q", tr.Name())
	}
}

func TestGoogle_InvalidTargetLanguage(t *testing.T) {
	tr := NewGoogle(GoogleConfig{})

	_, err := tr.Translate(context.Background(), "Hello", "!!")
	var cfgErr *translation.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestGoogle_EmptyBatch(t *testing.T) {
	tr := NewGoogle(GoogleConfig{})

	_, err := tr.TranslateBatch(context.Background(), nil, "fr", "", translation.Options{})
	var cfgErr *translation.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestClassifyGoogleError_Unauthorized(t *testing.T) {
	err := classifyGoogleError(&googleapi.Error{Code: 401, Message: "invalid credentials"})
	var authErr *translation.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthenticationError, got %T: %v", err, err)
	}
}

func TestClassifyGoogleError_ServerError(t *testing.T) {
	err := classifyGoogleError(&googleapi.Error{Code: 503, Message: "backend unavailable"})
	var httpErr *translation.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if !translation.Retryable(err) {
		t.Error("expected a 503 from the SDK to stay retryable")
	}
}

func TestClassifyGoogleError_Transport(t *testing.T) {
	err := classifyGoogleError(errors.New("connection refused"))
	var netErr *translation.NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("expected NetworkError, got %T: %v", err, err)
	}
}
