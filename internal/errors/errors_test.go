package errors

import (
	"errors"
	"testing"
)

func TestWorktreeNotFoundError(t *testing.T) {
	worktreeName := "backend"
	err := NewWorktreeNotFoundError(worktreeName)

	// Test error message
	expectedMsg := "worktree named 'backend' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrWorktreeNotFound) {
		t.Error("Expected error to match ErrWorktreeNotFound sentinel")
	}

	// Test that it doesn't match other sentinels
	if errors.Is(err, ErrPathNotFound) {
		t.Error("Error should not match ErrPathNotFound")
	}
}

func TestWorktreeAlreadyExistsError(t *testing.T) {
	worktreeName := "backend"
	err := NewWorktreeAlreadyExistsError(worktreeName)

	// Test error message
	expectedMsg := "worktree named 'backend' already exists"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrWorktreeAlreadyExists) {
		t.Error("Expected error to match ErrWorktreeAlreadyExists sentinel")
	}
}

func TestPathNotFoundError(t *testing.T) {
	// Test without worktree name
	path := "src/main.go"
	err := NewPathNotFoundError(path)

	expectedMsg := "path 'src/main.go' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test with worktree name
	err2 := NewPathNotFoundError(path, "backend")

	expectedMsg2 := "path 'src/main.go' not found in worktree 'backend'"
	if err2.Error() != expectedMsg2 {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg2, err2.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrPathNotFound) {
		t.Error("Expected error to match ErrPathNotFound sentinel")
	}
	if !errors.Is(err2, ErrPathNotFound) {
		t.Error("Expected error with worktree to match ErrPathNotFound sentinel")
	}
}

func TestJobNotFoundError(t *testing.T) {
	jobID := "job-456"
	err := NewJobNotFoundError(jobID)

	expectedMsg := "job with ID 'job-456' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrJobNotFound) {
		t.Error("Expected error to match ErrJobNotFound sentinel")
	}
}

func TestValidationError(t *testing.T) {
	// Test with field
	field := "name"
	message := "cannot be empty"
	err := NewValidationError(field, message)

	expectedMsg := "validation error for field 'name': cannot be empty"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test without field
	err2 := NewValidationError("", message)

	expectedMsg2 := "validation error: cannot be empty"
	if err2.Error() != expectedMsg2 {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg2, err2.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("Expected error to match ErrInvalidInput sentinel")
	}
	if !errors.Is(err2, ErrInvalidInput) {
		t.Error("Expected error without field to match ErrInvalidInput sentinel")
	}
}

func TestSearchCancelledError(t *testing.T) {
	err := NewSearchCancelledError("query-123")

	expectedMsg := "search 'query-123' was cancelled"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Without a query id the message stays generic
	err2 := NewSearchCancelledError("")
	if err2.Error() != "search was cancelled" {
		t.Errorf("Expected generic message, got '%s'", err2.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrSearchCancelled) {
		t.Error("Expected error to match ErrSearchCancelled sentinel")
	}
}

func TestErrorChaining(t *testing.T) {
	// Test that our custom errors can be wrapped and unwrapped
	originalErr := NewWorktreeNotFoundError("backend")
	wrappedErr := errors.Join(originalErr, errors.New("additional context"))

	// Should still be able to detect the original error
	if !errors.Is(wrappedErr, ErrWorktreeNotFound) {
		t.Error("Expected wrapped error to still match ErrWorktreeNotFound sentinel")
	}

	// Should be able to unwrap to get the original error
	var worktreeErr *WorktreeNotFoundError
	if !errors.As(wrappedErr, &worktreeErr) {
		t.Error("Expected to be able to unwrap to WorktreeNotFoundError")
	}

	if worktreeErr.WorktreeName != "backend" {
		t.Errorf("Expected worktree name 'backend', got '%s'", worktreeErr.WorktreeName)
	}
}
