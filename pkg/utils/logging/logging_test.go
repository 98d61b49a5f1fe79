package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

func TestFromFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	orig := logging.Default()
	logging.SetDefault(logger)
	t.Cleanup(func() { logging.SetDefault(orig) })

	logging.From(context.Background()).Info("hello")
	gt.String(t, buf.String()).Contains(`"msg":"hello"`)
}

func TestWithOverridesDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With("request_id", "abc")

	ctx := logging.With(context.Background(), logger)
	logging.From(ctx).Info("scoped")

	gt.String(t, buf.String()).Contains(`"request_id":"abc"`)
	gt.Value(t, logging.From(ctx)).Equal(logger)
}

func TestSetDefaultIgnoresNil(t *testing.T) {
	orig := logging.Default()
	logging.SetDefault(nil)
	gt.Value(t, logging.Default()).Equal(orig)
}
