package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "commitcast"

// StartPublishSpan starts a span for a producer publish call.
func StartPublishSpan(ctx context.Context, channel string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("channel", channel)),
	)
}

// StartFanoutSpan starts a span for one fan-out pass. The span is linked to the
// publish span that enqueued the message when one was recorded.
func StartFanoutSpan(ctx context.Context, channel string, publisher trace.SpanContext, frameBytes int) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("channel", channel),
			attribute.Int("frame.bytes", frameBytes),
		),
	}
	if publisher.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: publisher}))
	}
	return otel.Tracer(tracerName).Start(ctx, "fanout", opts...)
}
