// Package driver runs a document on a single worker goroutine. Edits and
// evaluations are queued onto that goroutine, so the tree, the sheet and the
// runtime are only ever touched by one goroutine at a time.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"reform/pkg/form"
	"reform/pkg/instr"
	"reform/pkg/sheet"
	"reform/pkg/vm"
)

var (
	ErrClosed     = errors.New("driver is closed")
	ErrNotStarted = errors.New("driver is not started")
)

// Document is what edits submitted to a Driver operate on.
type Document struct {
	Sheet   sheet.Sheet
	Tree    *instr.Tree
	Creator *instr.Creator
}

// Result describes one evaluation.
type Result struct {
	Data      *sheet.DataSet
	Snapshots []Snapshot
	Errors    []NodeError
	// PeakWords is the most stack words the evaluation held at once.
	PeakWords int
	// Err is set when the evaluation was cut short by its context.
	Err error
}

type Options struct {
	Canvas form.Vec2
	// ErrorLimit stops an evaluation after that many runtime errors. Zero
	// means no limit.
	ErrorLimit int
	// Samples is the number of outline points captured per form.
	Samples int
	// Trace, when set, receives a debug record for every evaluated node.
	Trace *slog.Logger
	// OnResult is called on the worker goroutine after every evaluation.
	OnResult func(Result)
	// Listeners are added to the runtime after the driver's own.
	Listeners []vm.Listener
}

// Driver owns a document and the goroutine that edits and evaluates it.
type Driver struct {
	doc       *Document
	rt        *vm.Runtime
	book      *ErrorBook
	collector *Collector
	onResult  func(Result)

	queue    chan func(ctx context.Context)
	inFlight atomic.Int32
	runs     atomic.Int64

	mu      sync.Mutex
	last    Result
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a driver for s and t. Call Start before submitting work.
func New(s sheet.Sheet, t *instr.Tree, opts Options) *Driver {
	book := NewErrorBook()
	rt := vm.New(opts.Canvas)
	collector := NewCollector(rt, opts.Samples)
	rt.AddListener(book)
	rt.AddListener(collector)
	if opts.ErrorLimit > 0 {
		rt.AddListener(NewErrorLimiter(rt, opts.ErrorLimit))
	}
	if opts.Trace != nil {
		rt.AddListener(NewTraceListener(opts.Trace))
	}
	for _, l := range opts.Listeners {
		rt.AddListener(l)
	}
	return &Driver{
		doc:       &Document{Sheet: s, Tree: t, Creator: instr.NewCreator(t, book)},
		rt:        rt,
		book:      book,
		collector: collector,
		onResult:  opts.OnResult,
		queue:     make(chan func(ctx context.Context), 64),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. It stops when ctx ends or Close is called.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	go d.loop(ctx)
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			job(ctx)
		}
	}
}

// Close stops the worker and waits for the job it is running. Queued jobs
// are dropped.
func (d *Driver) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	if started {
		<-d.done
	}
}

func (d *Driver) enqueue(ctx context.Context, job func(ctx context.Context)) error {
	d.mu.Lock()
	closed, started := d.closed, d.started
	d.mu.Unlock()
	switch {
	case closed:
		return ErrClosed
	case !started:
		return ErrNotStarted
	}
	select {
	case d.queue <- job:
		return nil
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues an edit. Edits run in submission order.
func (d *Driver) Submit(edit func(doc *Document)) error {
	return d.enqueue(context.Background(), func(context.Context) { edit(d.doc) })
}

// Trigger queues an evaluation. While one evaluation runs and another is
// already waiting, further triggers are dropped and Trigger reports false:
// the waiting evaluation will see the latest document anyway.
func (d *Driver) Trigger() bool {
	for {
		n := d.inFlight.Load()
		if n > 1 {
			return false
		}
		if d.inFlight.CompareAndSwap(n, n+1) {
			break
		}
	}
	err := d.enqueue(context.Background(), func(ctx context.Context) {
		defer d.inFlight.Add(-1)
		d.evaluate(ctx)
	})
	if err != nil {
		d.inFlight.Add(-1)
		return false
	}
	return true
}

// Flush waits until everything queued before it has run.
func (d *Driver) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := d.enqueue(ctx, func(context.Context) { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks a running evaluation to skip its remaining work.
func (d *Driver) Stop() { d.rt.Stop() }

// Last returns the result of the latest evaluation.
func (d *Driver) Last() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Runs is the number of evaluations completed.
func (d *Driver) Runs() int64 { return d.runs.Load() }

// Evaluate solves the sheet and runs the tree on the calling goroutine. It
// is what queued evaluations do, exposed for one-shot use without Start.
func (d *Driver) Evaluate(ctx context.Context) Result {
	return d.evaluate(ctx)
}

func (d *Driver) evaluate(ctx context.Context) Result {
	ds := sheet.Solve(d.doc.Sheet)
	err := d.rt.Run(ctx, ds, d.doc.Tree)
	res := Result{
		Data:      ds,
		Snapshots: d.collector.Snapshots(),
		Errors:    d.book.Errors(),
		PeakWords: d.collector.PeakWords(),
		Err:       err,
	}
	d.runs.Add(1)
	d.mu.Lock()
	d.last = res
	d.mu.Unlock()
	if d.onResult != nil {
		d.onResult(res)
	}
	return res
}
