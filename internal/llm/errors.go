package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ermiller24/executive-layer/internal/types"
)

// LLM error codes
const (
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable  types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"
	ErrInvalidRequest       types.ErrorCode = "LLM_INVALID_REQUEST"
	ErrCompletionFailed     types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrStreamingFailed      types.ErrorCode = "LLM_STREAMING_FAILED"
	ErrTimeoutExceeded      types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"
	ErrNetworkFailed        types.ErrorCode = "LLM_NETWORK_FAILED"
)

// IsRetryable determines if an error is transient and may succeed on retry.
func IsRetryable(err error) bool {
	var appErr *types.Error
	if !errors.As(err, &appErr) {
		return false
	}

	if appErr.Retryable {
		return true
	}

	switch appErr.Code {
	case ErrNetworkFailed, ErrProviderRateLimited, ErrProviderUnavailable, ErrTimeoutExceeded:
		return true
	default:
		return false
	}
}

// NewAuthError creates an authentication error for a provider.
func NewAuthError(provider string, cause error) error {
	return types.WrapError(ErrProviderUnauthorized,
		fmt.Sprintf("provider %q authentication failed", provider), cause)
}

// NewInvalidRequestError creates an error for invalid requests.
func NewInvalidRequestError(message string) error {
	return types.NewError(ErrInvalidRequest, message)
}

// TranslateError translates provider SDK errors into coded errors based on
// error message content.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *types.Error
	if errors.As(err, &appErr) {
		return err
	}

	lowerMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lowerMsg, "unauthorized") || strings.Contains(lowerMsg, "authentication") || strings.Contains(lowerMsg, "api key"):
		return NewAuthError(provider, err)
	case strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests"):
		return types.NewRetryableError(ErrProviderRateLimited,
			fmt.Sprintf("rate limit exceeded for provider %q", provider))
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline"):
		return types.NewRetryableError(ErrTimeoutExceeded, err.Error())
	case strings.Contains(lowerMsg, "network") || strings.Contains(lowerMsg, "connection"):
		return &types.Error{
			Code:      ErrNetworkFailed,
			Message:   err.Error(),
			Retryable: true,
			Cause:     err,
		}
	default:
		return &types.Error{
			Code:      ErrProviderUnavailable,
			Message:   fmt.Sprintf("provider %q request failed", provider),
			Retryable: true,
			Cause:     err,
		}
	}
}
