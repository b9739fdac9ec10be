package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a CoreError. Kinds are stable and
// are safe to branch on; the Message is for humans, not for control flow.
type ErrorKind string

const (
	KindValidation ErrorKind = "ValidationError"
	KindNotInitialized ErrorKind = "NotInitialized"
	KindDuplicateID ErrorKind = "DuplicateId"
	KindNotFound ErrorKind = "NotFound"
	KindUnauthorized ErrorKind = "Unauthorized"
	KindSessionExpired ErrorKind = "SessionExpired"
	KindInvalidSignature ErrorKind = "InvalidSignature"
	KindNonceInvalid ErrorKind = "NonceInvalid"
	KindRateLimited ErrorKind = "RateLimited"
	KindTemporarilyBlocked ErrorKind = "TemporarilyBlocked"
	KindInsufficientPerms ErrorKind = "InsufficientPermissions"
	KindRemoteUnavailable ErrorKind = "RemoteUnavailable"
	KindRemoteRejected ErrorKind = "RemoteRejected"
	KindSigningFailed ErrorKind = "SigningFailed"
	KindInternal ErrorKind = "Internal"
)

// RateLimitScope distinguishes the three rate-limit windows: global,
// per-origin, and per-identity.
type RateLimitScope string

const (
	RateLimitGlobal RateLimitScope = "global"
	RateLimitOrigin RateLimitScope = "origin"
	RateLimitIdentity RateLimitScope = "identity"
)

// CoreError is the single tagged-result error type used across the
// orchestrator: a Kind/Code/Cause/Unwrap shape generalized to the
// core's own error taxonomy instead of a retry classification.
type CoreError struct {
	Kind ErrorKind
	Code string // fine-grained reason, e.g. "IdTooShort", stable for tests
	Message string
	Scope RateLimitScope // only meaningful when Kind == KindRateLimited
	Cause error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s(%s): %s (caused by: %v)", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Code, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match on Kind+Code without requiring identical
// pointers, since CoreError values are usually constructed fresh at
// each call site.
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	if !ok {
		return false
	}
	if other.Code == "" {
		return e.Kind == other.Kind
	}
	return e.Kind == other.Kind && e.Code == other.Code
}

func NewError(kind ErrorKind, code, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Code: code, Message: message, Cause: cause}
}

func NewValidationError(code, message string) *CoreError {
	return &CoreError{Kind: KindValidation, Code: code, Message: message}
}

func NewRateLimitedError(scope RateLimitScope) *CoreError {
	return &CoreError{
		Kind: KindRateLimited,
		Code: string(scope),
		Message: fmt.Sprintf("%s rate limit exceeded", scope),
		Scope: scope,
	}
}

func NewBlockedError(remaining string) *CoreError {
	return &CoreError{
		Kind: KindTemporarilyBlocked,
		Code: "backoff_active",
		Message: fmt.Sprintf("identity is temporarily blocked, retry after %s", remaining),
	}
}

// IsKind reports whether err is (or wraps) a CoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CoreError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
