package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/utils/errutil"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

// Dispatch runs handler in a new goroutine detached from ctx cancellation.
// The logger of ctx is kept. Errors and panics are logged and reported. The
// returned channel is closed when handler has finished.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) <-chan struct{} {
	bgCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx).With("task", task))
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, goerr.New("panic in async task", goerr.V("panic", r)), "async task panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async task failed")
		}
	}()

	return done
}
