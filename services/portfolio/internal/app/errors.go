package app

import "errors"

var (
	// client errors
	ErrMissingFields      = errors.New("missing required fields")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailExists        = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrChatNotFound       = errors.New("chat not found")
	ErrChatForbidden      = errors.New("chat belongs to another user")

	// upstream failures
	ErrGenerationFailed = errors.New("failed to generate response")
	ErrResumeUpload     = errors.New("failed to store resume")
	ErrResumeFetch      = errors.New("failed to fetch resume")
	ErrPublishFailed    = errors.New("failed to publish page")
)
