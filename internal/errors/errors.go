package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrWorktreeNotFound is returned when a worktree is not found
	ErrWorktreeNotFound = errors.New("worktree not found")

	// ErrWorktreeAlreadyExists is returned when trying to add a worktree that already exists
	ErrWorktreeAlreadyExists = errors.New("worktree already exists")

	// ErrPathNotFound is returned when a path is not indexed
	ErrPathNotFound = errors.New("path not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrSearchCancelled is returned when a search is abandoned before completing
	ErrSearchCancelled = errors.New("search cancelled")
)

// WorktreeNotFoundError represents a worktree not found error with context
type WorktreeNotFoundError struct {
	WorktreeName string
}

func (e *WorktreeNotFoundError) Error() string {
	return fmt.Sprintf("worktree named '%s' not found", e.WorktreeName)
}

func (e *WorktreeNotFoundError) Is(target error) bool {
	return target == ErrWorktreeNotFound
}

// NewWorktreeNotFoundError creates a new WorktreeNotFoundError
func NewWorktreeNotFoundError(worktreeName string) *WorktreeNotFoundError {
	return &WorktreeNotFoundError{WorktreeName: worktreeName}
}

// WorktreeAlreadyExistsError represents a worktree already exists error with context
type WorktreeAlreadyExistsError struct {
	WorktreeName string
}

func (e *WorktreeAlreadyExistsError) Error() string {
	return fmt.Sprintf("worktree named '%s' already exists", e.WorktreeName)
}

func (e *WorktreeAlreadyExistsError) Is(target error) bool {
	return target == ErrWorktreeAlreadyExists
}

// NewWorktreeAlreadyExistsError creates a new WorktreeAlreadyExistsError
func NewWorktreeAlreadyExistsError(worktreeName string) *WorktreeAlreadyExistsError {
	return &WorktreeAlreadyExistsError{WorktreeName: worktreeName}
}

// PathNotFoundError represents a path not found error with context
type PathNotFoundError struct {
	Path         string
	WorktreeName string
}

func (e *PathNotFoundError) Error() string {
	if e.WorktreeName != "" {
		return fmt.Sprintf("path '%s' not found in worktree '%s'", e.Path, e.WorktreeName)
	}
	return fmt.Sprintf("path '%s' not found", e.Path)
}

func (e *PathNotFoundError) Is(target error) bool {
	return target == ErrPathNotFound
}

// NewPathNotFoundError creates a new PathNotFoundError
func NewPathNotFoundError(path string, worktreeName ...string) *PathNotFoundError {
	err := &PathNotFoundError{Path: path}
	if len(worktreeName) > 0 {
		err.WorktreeName = worktreeName[0]
	}
	return err
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SearchCancelledError represents a search that was abandoned mid-flight
type SearchCancelledError struct {
	QueryID string
}

func (e *SearchCancelledError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("search '%s' was cancelled", e.QueryID)
	}
	return "search was cancelled"
}

func (e *SearchCancelledError) Is(target error) bool {
	return target == ErrSearchCancelled
}

// NewSearchCancelledError creates a new SearchCancelledError
func NewSearchCancelledError(queryID string) *SearchCancelledError {
	return &SearchCancelledError{QueryID: queryID}
}
