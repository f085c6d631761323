// Package corelog generalizes per-user structured logging to the
// coordination core's broader set of correlation ids: match, tournament,
// war, and zone, in addition to user.
package corelog

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"
)

// WithContext attaches whichever correlation ids are present in ctx and fields
// to a derived logger. Fields explicitly passed in take precedence over ctx.
func WithContext(ctx context.Context, logger runtime.Logger, fields map[string]interface{}) runtime.Logger {
	merged := map[string]interface{}{}
	if uid, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok && uid != "" {
		merged["user"] = uid
	}
	if mid, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok && mid != "" {
		merged["match"] = mid
	}
	for k, v := range fields {
		merged[k] = v
	}
	if len(merged) == 0 {
		return logger
	}
	return logger.WithFields(merged)
}

// Entity attaches a single named correlation id (tournament, war, zone, ...)
// without requiring the caller to build a map literal at every call site.
func Entity(logger runtime.Logger, kind, id string) runtime.Logger {
	return logger.WithField(kind, id)
}

// Error logs at error level with the error message folded into fields.
func Error(ctx context.Context, logger runtime.Logger, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	WithContext(ctx, logger, fields).Error(message)
}

// Info logs at info level with the given correlation fields.
func Info(ctx context.Context, logger runtime.Logger, message string, fields map[string]interface{}) {
	WithContext(ctx, logger, fields).Info(message)
}

// Warn logs at warn level with the given correlation fields.
func Warn(ctx context.Context, logger runtime.Logger, message string, fields map[string]interface{}) {
	WithContext(ctx, logger, fields).Warn(message)
}
