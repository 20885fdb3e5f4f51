package errors

import (
	stderrors "errors"
	"testing"
)

func TestFeedError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := FeedError{Feed: "GDACS_ALERTS", Stage: "fetch", Err: cause}

	expected := "feed GDACS_ALERTS failed at stage fetch: connection refused"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	if !stderrors.Is(err, cause) {
		t.Error("Expected FeedError to unwrap to its cause")
	}
}

func TestDatabaseError(t *testing.T) {
	cause := stderrors.New("constraint violation")
	err := DatabaseError{Operation: "insert_incident", Err: cause}

	if !stderrors.Is(err, cause) {
		t.Error("Expected DatabaseError to unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("Expected non-empty error string")
	}
}

func TestMultiError(t *testing.T) {
	var multi MultiError

	if multi.HasErrors() {
		t.Error("Expected no errors initially")
	}
	if multi.Error() != "no errors" {
		t.Errorf("Expected 'no errors', got %q", multi.Error())
	}

	multi.Add(nil)
	if multi.HasErrors() {
		t.Error("Adding nil should not record an error")
	}

	multi.Add(stderrors.New("first"))
	if multi.Error() != "first" {
		t.Errorf("Expected 'first', got %q", multi.Error())
	}

	multi.Add(stderrors.New("second"))
	expected := "first (and 1 more errors)"
	if multi.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, multi.Error())
	}
}

func TestMultiError_UnwrapsCollectedErrors(t *testing.T) {
	var multi MultiError
	multi.Add(stderrors.New("transient"))
	multi.Add(FeedError{Feed: "NOAA_WEATHER", Stage: "store", Err: stderrors.New("connection refused")})

	var ferr FeedError
	if !stderrors.As(multi, &ferr) {
		t.Fatal("Expected errors.As to find the wrapped FeedError")
	}
	if ferr.Stage != "store" {
		t.Errorf("Expected store stage, got %q", ferr.Stage)
	}
}
