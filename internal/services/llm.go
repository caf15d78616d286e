package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
)

// LLMService defines the interface for interacting with the completion API
type LLMService interface {
	// Complete answers query given a system prompt and prior conversation.
	Complete(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error)

	// ListModels returns the chat model ids available to the configured key.
	ListModels(ctx context.Context) ([]string, error)
}

// RetryPolicy controls how failed completion calls are retried.
// Client errors (4xx) are never retried.
type RetryPolicy struct {
	MaxAttempts uint
	Backoff     time.Duration
}

// DefaultRetryPolicy makes five attempts five seconds apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, Backoff: 5 * time.Second}

// apiFailure is a non-200 response from a completion API.
type apiFailure struct {
	Status  int
	Message string
}

func (e *apiFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func isClientError(status int) bool {
	return status >= 400 && status < 500
}

// withRetry runs op under the policy. The returned error is a RemoteService
// command error prefixed with the service name.
func withRetry(ctx context.Context, policy RetryPolicy, service string, op backoff.Operation[string]) (string, error) {
	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Backoff)),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return out, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}

	var fail *apiFailure
	if errors.As(err, &fail) && isClientError(fail.Status) {
		return "", cmderr.Wrap(cmderr.RemoteService, service+" API failed: "+fail.Error(), err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", cmderr.Wrap(cmderr.RemoteService, service+" API request cancelled", ctxErr)
	}
	msg := service + " API failed multiple times"
	if fail != nil {
		msg += ": " + fail.Error()
	}
	return "", cmderr.Wrap(cmderr.RemoteService, msg, err)
}

// responseFailure turns an unsuccessful status into a retryable or permanent error.
func responseFailure(status int, message string) error {
	fail := &apiFailure{Status: status, Message: message}
	if isClientError(status) {
		return backoff.Permanent(fail)
	}
	return fail
}
