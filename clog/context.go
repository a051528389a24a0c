package clog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// contextAttrs 按规则从 ctx 中提取字段，开启追踪提取时附加 trace_id 和 span_id
func contextAttrs(ctx context.Context, o *options) []slog.Attr {
	if ctx == nil || o == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, cf := range o.contextFields {
		if v := ctx.Value(cf.Key); v != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, v))
		}
	}

	if o.enableTraceExtraction {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return attrs
}
