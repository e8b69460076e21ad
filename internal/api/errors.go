package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error with contextual
// information. It is returned by broker operations when the requested
// OAuth provider is not registered.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "OAuth provider", "token").
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found.
	ResourceName string

	// Message provides a custom error message if the default format is insufficient.
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource
// type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// NewProviderNotFoundError creates a not found error for an unregistered
// OAuth provider.
func NewProviderNotFoundError(name string) *NotFoundError {
	return &NotFoundError{
		ResourceType: "OAuth provider",
		ResourceName: name,
		Message:      fmt.Sprintf("unsupported OAuth provider %s", name),
	}
}

// UnauthorizedError indicates that no valid credential exists for the
// current subject. Broker operations return it when a token is missing,
// revocation fails, or the request carries no authenticated subject.
type UnauthorizedError struct {
	// Message describes why the operation is unauthorized.
	Message string
}

// Error implements the error interface for UnauthorizedError.
func (e *UnauthorizedError) Error() string {
	return e.Message
}

// IsUnauthorized checks if an error is an UnauthorizedError using error unwrapping.
func IsUnauthorized(err error) bool {
	var unauthorizedErr *UnauthorizedError
	return errors.As(err, &unauthorizedErr)
}

// NewUnauthorizedError creates a new UnauthorizedError with a formatted message.
func NewUnauthorizedError(format string, args ...interface{}) *UnauthorizedError {
	return &UnauthorizedError{Message: fmt.Sprintf(format, args...)}
}

// ServerError wraps an internal failure (I/O errors talking to the token
// storage or the external provider) that is not the caller's fault.
type ServerError struct {
	// Message describes the failed operation.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface for ServerError.
func (e *ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *ServerError) Unwrap() error {
	return e.Cause
}

// IsServerError checks if an error is a ServerError using error unwrapping.
func IsServerError(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}

// NewServerError creates a new ServerError wrapping the given cause.
func NewServerError(cause error, format string, args ...interface{}) *ServerError {
	return &ServerError{Message: fmt.Sprintf(format, args...), Cause: cause}
}
