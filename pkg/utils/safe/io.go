package safe

import (
	"context"
	"io"

	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

// Close closes closer and logs a failure instead of returning it. A nil
// closer is ignored. attrs are appended to the log record to name the resource.
func Close(ctx context.Context, closer io.Closer, attrs ...any) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("failed to close", append([]any{"error", err.Error()}, attrs...)...)
	}
}
