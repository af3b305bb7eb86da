package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span wraps a tracing span and batches its attributes until End
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	case []string:
		attr = attribute.StringSlice(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Duration returns the time since the span started
func (s *Span) Duration() time.Duration {
	return time.Since(s.startTime)
}

// End records err, if any, as the span status and ends the span
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// StepTracer names spans after a component and its steps
type StepTracer struct {
	component string
}

// NewStepTracer creates a tracer for component
func NewStepTracer(component string) *StepTracer {
	return &StepTracer{component: component}
}

// StartSpan starts a span for one step of the component
func (st *StepTracer) StartSpan(ctx context.Context, step string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, st.component+"."+step)
	span.SetAttribute("component", st.component)
	span.SetAttribute("step", step)
	return ctx, span
}

// TraceStep runs fn inside a span for step
func (st *StepTracer) TraceStep(ctx context.Context, step string, fn func(context.Context) error) error {
	ctx, span := st.StartSpan(ctx, step)
	err := fn(ctx)
	span.End(err)
	return err
}
