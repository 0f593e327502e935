package simulator

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Tracer receives one TraceEvent per step of every dispatched event, in
// dispatch order. Tracers are called synchronously from the event loop.
type Tracer interface {
	Trace(event TraceEvent)
}

// TracerFunc adapts a function to the Tracer interface
type TracerFunc func(event TraceEvent)

func (f TracerFunc) Trace(event TraceEvent) { f(event) }

type nopTracer struct{}

func (nopTracer) Trace(TraceEvent) {}

// Recorder keeps every trace event in memory
type Recorder struct {
	Events []TraceEvent
}

func (r *Recorder) Trace(event TraceEvent) {
	r.Events = append(r.Events, event)
}

// Drain returns the recorded events and resets the recorder
func (r *Recorder) Drain() []TraceEvent {
	events := r.Events
	r.Events = nil
	return events
}

// MultiTracer fans trace events out to several tracers
func MultiTracer(tracers ...Tracer) Tracer {
	return TracerFunc(func(event TraceEvent) {
		for _, t := range tracers {
			t.Trace(event)
		}
	})
}

// TextTracer writes one fixed-width line per trace event: the label
// left-aligned in 27 columns, the time right-aligned in 15 with 5 decimals.
type TextTracer struct {
	w      *bufio.Writer
	closer io.Closer
	err    error
}

// NewTextTracer writes trace lines to w. If w is an io.Closer, Close closes it.
func NewTextTracer(w io.Writer) *TextTracer {
	t := &TextTracer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// OpenTraceFile creates (truncating) the trace file at path
func OpenTraceFile(path string) (*TextTracer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewTextTracer(f), nil
}

// FormatTraceLine renders a trace event without the trailing newline
func FormatTraceLine(event TraceEvent) string {
	return fmt.Sprintf("%-27s%15.5f", event.Label, event.Time)
}

func (t *TextTracer) Trace(event TraceEvent) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.w, FormatTraceLine(event))
}

// Err returns the first write error, if any
func (t *TextTracer) Err() error {
	return t.err
}

// Close flushes buffered lines and closes the underlying writer
func (t *TextTracer) Close() error {
	err := t.w.Flush()
	if t.err == nil {
		t.err = err
	}
	if t.closer != nil {
		if cerr := t.closer.Close(); t.err == nil {
			t.err = cerr
		}
	}
	return t.err
}
