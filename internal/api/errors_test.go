package api

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	if err := classifyStatus(401, "u"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("401 should classify as ErrUnauthorized, got %v", err)
	}
	if err := classifyStatus(404, "u"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("404 should classify as ErrNotFound, got %v", err)
	}

	for _, status := range []int{400, 429, 500, 503} {
		err := classifyStatus(status, "u")
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
			t.Fatalf("status %d must classify as transient, got %v", status, err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != status {
			t.Fatalf("status %d should carry a StatusError, got %v", status, err)
		}
	}
}
