package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/guardloop/internal/engine"
)

type recordedSpan struct {
	trace.Span
	name   string
	attrs  map[attribute.Key]string
	errs   []error
	status codes.Code
	ended  bool
}

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }
func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

type recordingTracer struct {
	trace.Tracer
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordedSpan{name: name, attrs: map[attribute.Key]string{}}
	for _, kv := range cfg.Attributes() {
		span.attrs[kv.Key] = kv.Value.AsString()
	}
	r.spans = append(r.spans, span)
	return ctx, span
}

func testNames() engine.Names {
	return engine.Names{
		States: map[engine.StateID]string{1: "STARTUP", 2: "RUNNING"},
		Events: map[engine.EventID]string{1: "READY"},
	}
}

func TestObserver_Transition(t *testing.T) {
	tr := &recordingTracer{}
	o := NewObserver("controller", testNames(), WithTracer(tr))

	o.Transitioned(1, 2, 1)

	require.Len(t, tr.spans, 1)
	span := tr.spans[0]
	assert.Equal(t, SpanTransition, span.name)
	assert.True(t, span.ended)
	assert.Equal(t, map[attribute.Key]string{
		AttrMachine: "controller",
		AttrFrom:    "STARTUP",
		AttrTo:      "RUNNING",
		AttrEvent:   "READY",
	}, span.attrs)
}

func TestObserver_Drop(t *testing.T) {
	tr := &recordingTracer{}
	o := NewObserver("controller", testNames(), WithTracer(tr))

	o.Dropped(2, 7, engine.DropNoTransition)

	require.Len(t, tr.spans, 1)
	assert.Equal(t, SpanDrop, tr.spans[0].name)
	assert.Equal(t, "event(7)", tr.spans[0].attrs[AttrEvent])
	assert.Equal(t, "no_transition", tr.spans[0].attrs[AttrReason])
}

func TestObserver_HookFailure(t *testing.T) {
	tr := &recordingTracer{}
	o := NewObserver("system", testNames(), WithTracer(tr))
	boom := errors.New("boom")

	o.HookFailed(2, engine.HookEntry, boom)

	require.Len(t, tr.spans, 1)
	span := tr.spans[0]
	assert.Equal(t, SpanHookError, span.name)
	assert.Equal(t, codes.Error, span.status)
	assert.Equal(t, []error{boom}, span.errs)
	assert.Equal(t, "entry", span.attrs[AttrHook])
	assert.True(t, span.ended)
}

func TestObserver_DefaultTracerIsSafe(t *testing.T) {
	o := NewObserver("controller", testNames(), WithContext(context.Background()))

	assert.NotPanics(t, func() {
		o.Transitioned(1, 2, 1)
		o.Dropped(1, 1, engine.DropGuardRejected)
		o.HookFailed(1, engine.HookExit, errors.New("x"))
	})
}

func TestObserver_DrivenByEngine(t *testing.T) {
	tr := &recordingTracer{}
	names := testNames()
	e := engine.New(engine.WithObserver(NewObserver("controller", names, WithTracer(tr))))
	require.NoError(t, e.Initialize(
		[]engine.State{{ID: 1, Name: "STARTUP"}, {ID: 2, Name: "RUNNING"}},
		[]engine.Transition{{From: 1, To: 2, Event: 1}},
		1,
	))

	require.NoError(t, e.SendEvent(1))
	require.NoError(t, e.RunOneCycle())
	require.NoError(t, e.SendEvent(1))
	require.NoError(t, e.RunOneCycle())

	require.Len(t, tr.spans, 2)
	assert.Equal(t, SpanTransition, tr.spans[0].name)
	assert.Equal(t, SpanDrop, tr.spans[1].name)
}
