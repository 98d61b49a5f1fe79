package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/utils/async"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestDispatch(t *testing.T) {
	t.Run("handler survives parent cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var handlerErr error
		wait(t, async.Dispatch(ctx, "warm-up", func(ctx context.Context) error {
			handlerErr = ctx.Err()
			return nil
		}))
		gt.NoError(t, handlerErr)
	})

	t.Run("errors are logged with task name", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

		wait(t, async.Dispatch(ctx, "warm-up", func(ctx context.Context) error {
			return errors.New("store down")
		}))
		gt.String(t, buf.String()).Contains("store down")
		gt.String(t, buf.String()).Contains(`"task":"warm-up"`)
	})

	t.Run("panics are recovered", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

		wait(t, async.Dispatch(ctx, "boom", func(ctx context.Context) error {
			panic("unexpected")
		}))
		gt.String(t, buf.String()).Contains("async task panicked")
	})
}
