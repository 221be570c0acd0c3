// Package telemetry exports engine activity as OpenTelemetry spans.
//
// Each transition, dropped event and hook failure becomes one short span
// named after what happened, carrying the machine, state and event names as
// attributes. Without a configured provider the global no-op tracer is
// used and the observer costs a few allocations per notification.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/guardloop/internal/engine"
)

// InstrumentationName identifies spans produced by this package.
const InstrumentationName = "github.com/roach88/guardloop/internal/telemetry"

// Span names.
const (
	SpanTransition = "guardloop.transition"
	SpanDrop       = "guardloop.drop"
	SpanHookError  = "guardloop.hook_error"
)

// Attribute keys.
const (
	AttrMachine = attribute.Key("guardloop.machine")
	AttrFrom    = attribute.Key("guardloop.from")
	AttrTo      = attribute.Key("guardloop.to")
	AttrState   = attribute.Key("guardloop.state")
	AttrEvent   = attribute.Key("guardloop.event")
	AttrReason  = attribute.Key("guardloop.reason")
	AttrHook    = attribute.Key("guardloop.hook")
)

// Observer is an engine.Observer that emits spans.
type Observer struct {
	ctx     context.Context
	tracer  trace.Tracer
	machine string
	names   engine.Names
}

// Option configures an Observer.
type Option func(*Observer)

// WithTracer sets the tracer. Default: the global provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Observer) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithContext sets the parent context for emitted spans.
func WithContext(ctx context.Context) Option {
	return func(o *Observer) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// NewObserver creates an observer for machine.
func NewObserver(machine string, names engine.Names, opts ...Option) *Observer {
	o := &Observer{
		ctx:     context.Background(),
		tracer:  otel.Tracer(InstrumentationName),
		machine: machine,
		names:   names,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transitioned implements engine.Observer.
func (o *Observer) Transitioned(from, to engine.StateID, ev engine.EventID) {
	_, span := o.tracer.Start(o.ctx, SpanTransition, trace.WithAttributes(
		AttrMachine.String(o.machine),
		AttrFrom.String(o.names.State(from)),
		AttrTo.String(o.names.State(to)),
		AttrEvent.String(o.names.Event(ev)),
	))
	span.End()
}

// Dropped implements engine.Observer.
func (o *Observer) Dropped(state engine.StateID, ev engine.EventID, reason engine.DropReason) {
	_, span := o.tracer.Start(o.ctx, SpanDrop, trace.WithAttributes(
		AttrMachine.String(o.machine),
		AttrState.String(o.names.State(state)),
		AttrEvent.String(o.names.Event(ev)),
		AttrReason.String(reason.String()),
	))
	span.End()
}

// HookFailed implements engine.Observer.
func (o *Observer) HookFailed(state engine.StateID, hook engine.HookKind, err error) {
	_, span := o.tracer.Start(o.ctx, SpanHookError, trace.WithAttributes(
		AttrMachine.String(o.machine),
		AttrState.String(o.names.State(state)),
		AttrHook.String(hook.String()),
	))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

var _ engine.Observer = (*Observer)(nil)
