package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

// InitSentry enables error reporting. An empty dsn leaves reporting disabled.
func InitSentry(dsn, env string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return goerr.Wrap(err, "failed to initialize sentry", goerr.V("env", env))
	}
	return nil
}

// FlushSentry waits for buffered events to be delivered
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Report sends err to Sentry when a client is configured
func Report(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		var ge *goerr.Error
		if errors.As(err, &ge) {
			scope.SetContext("goerr", sentry.Context(ge.Values()))
		}
		hub.CaptureException(err)
	})
}

// Handle logs the error with a message, reports it and returns it unchanged.
// This function ensures that unexpected failures are never silently dropped.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	// Extract goerr values for structured logging
	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	Report(ctx, err)
	return err
}

// HandleHTTP logs the error and writes body as a JSON error response.
// 5xx errors are logged at error level and reported; 4xx are logged as warnings.
// A nil body is replaced with {"error": err.Error()}.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int, body map[string]any) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	if statusCode >= http.StatusInternalServerError {
		var ge *goerr.Error
		if errors.As(err, &ge) {
			logger.Error("HTTP error",
				"status", statusCode,
				"error", err.Error(),
				"values", ge.Values(),
				"stack", ge.Stacks(),
			)
		} else {
			logger.Error("HTTP error",
				"status", statusCode,
				"error", err.Error(),
			)
		}
		Report(ctx, err)
	} else {
		logger.Warn("HTTP client error", "status", statusCode, "error", err.Error())
	}

	if body == nil {
		body = map[string]any{"error": err.Error()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		logger.Error("failed to write error response", "error", encErr)
	}
}
