package cliutil

import (
	"errors"
	"testing"
)

func TestConfirmWithForce_SkipsPrompt(t *testing.T) {
	confirmed, err := ConfirmWithForce("Release every lock?", true)
	if err != nil {
		t.Fatalf("ConfirmWithForce(force=true) error = %v", err)
	}
	if !confirmed {
		t.Error("ConfirmWithForce(force=true) = false, want true")
	}
}

func TestIsAborted(t *testing.T) {
	if !IsAborted(ErrAborted) {
		t.Error("IsAborted(ErrAborted) = false, want true")
	}
	if IsAborted(errors.New("some other error")) {
		t.Error("IsAborted(other) = true, want false")
	}
	if IsAborted(nil) {
		t.Error("IsAborted(nil) = true, want false")
	}
}
