package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// External tool errors
	ErrToolUnavailable = fmt.Errorf("yt-dlp binary not found")
	ErrToolFailed      = fmt.Errorf("yt-dlp execution failed")
	ErrAuthFailed      = fmt.Errorf("authentication failed, check that the cookie file is valid and not expired")

	// Credential errors
	ErrCredentialMissing = fmt.Errorf("no credential configured for this platform")

	// Orchestration errors
	ErrQueueFull       = fmt.Errorf("command queue is full")
	ErrCancelled       = fmt.Errorf("cancelled")
	ErrStalled         = fmt.Errorf("download stalled")
	ErrTaskPanic       = fmt.Errorf("task terminated abnormally")
	ErrUnknownPlatform = fmt.Errorf("unknown platform")

	// Persistence errors
	ErrNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
