package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/wizard/internal/reactive"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/validation"
	"github.com/roach88/wizard/internal/value"
)

// Collection is the persistent store of one kind of document.
// Implemented by *store.Collection.
type Collection interface {
	Name() string
	// Schema returns the schema attached to the collection, or nil.
	Schema() *schema.Schema
	Insert(ctx context.Context, rec value.Record) (string, error)
	FindOne(ctx context.Context, id string) (value.Record, bool, error)
	Update(ctx context.Context, id string, fields value.Record) (int64, error)
	Remove(ctx context.Context, id string) (int64, error)
}

// Validator validates data contexts and holds the result of the last
// passes. Implemented by *validation.Context.
type Validator interface {
	ValidateAll(rec value.Record) bool
	ValidateOne(rec value.Record, field string) bool
	InvalidFieldNames() []string
	MessageFor(field string) string
	KeyIsInvalid(field string) bool
	Reset()
	Depend(c *reactive.Computation)
}

// DefinitionSource provides per-collection form definitions.
// Implemented by *store.Store.
type DefinitionSource interface {
	VisibleFields(ctx context.Context, collection string) ([]string, bool, error)
}

// Engine owns one data context: the record being edited in a form.
//
// Field updates, validation and lifecycle transitions happen synchronously
// on the caller's goroutine. The engine is not safe for concurrent use by
// several callers; hold one Engine per form.
//
// Persistence is asynchronous. Create, Save and Remove queue an operation
// and return its handle; Run applies queued operations one at a time, in
// submission order. Reads that must observe earlier writes (HasChanged,
// Discard, Init with an id) are queued behind them and waited for.
//
// Thread-safety model:
//   - public methods other than Run/Stop: one caller goroutine
//   - Run(): must be called from exactly one goroutine
//   - Op handles: safe from any goroutine
type Engine struct {
	log          *slog.Logger
	ids          IDGenerator
	defs         DefinitionSource
	errSink      func(*Op, error)
	newValidator func(*schema.Schema) Validator
	seq          *Sequence
	queue        *opQueue

	collection Collection
	schema     *schema.Schema
	validator  *reactive.Cell[Validator]
	context    *reactive.Cell[value.Record]

	activeFields  []string
	template      string
	modal         bool
	onSaveFailure *reactive.Cell[func(error)]
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the generator of document ids used by Create.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithDefinitions sets where Init loads visible-field definitions from.
// Without it every field is active.
func WithDefinitions(d DefinitionSource) Option {
	return func(e *Engine) {
		e.defs = d
	}
}

// WithErrorSink registers a callback for failed persistence operations.
// It runs on the Run goroutine.
func WithErrorSink(fn func(op *Op, err error)) Option {
	return func(e *Engine) {
		e.errSink = fn
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithValidatorFactory replaces the validator built for each schema.
//
// Default: a validation.Context named "wizard".
func WithValidatorFactory(fn func(*schema.Schema) Validator) Option {
	return func(e *Engine) {
		e.newValidator = fn
	}
}

// WithSequence sets the sequence numbering queued operations.
func WithSequence(seq *Sequence) Option {
	return func(e *Engine) {
		e.seq = seq
	}
}

// New creates an uninitialized Engine. Call Init before editing and start
// Run on its own goroutine before persisting.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:   slog.Default(),
		ids:   UUIDv7Generator{},
		seq:   NewSequence(0),
		queue: newOpQueue(),
		newValidator: func(s *schema.Schema) Validator {
			return validation.NewContext(s, "wizard")
		},
		validator:     reactive.NewCell[Validator](nil),
		context:       reactive.NewCell[value.Record](nil),
		onSaveFailure: reactive.NewCell[func(error)](nil),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the single-writer persistence loop.
// Blocks until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a failed store call is logged, reported to the error
// sink and recorded on its Op; the loop continues. The in-memory data
// context is never rolled back and the operation is not retried.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Debug("persistence worker starting")

	for {
		if op, ok := e.queue.TryDequeue(); ok {
			e.apply(ctx, op)
			continue
		}

		if e.queue.Closed() && e.queue.Len() == 0 {
			e.log.Debug("persistence worker stopping: queue closed")
			return nil
		}

		select {
		case <-ctx.Done():
			e.log.Debug("persistence worker stopping: context cancelled")
			for _, op := range e.queue.Drain() {
				op.finish(ErrStopped)
			}
			return ctx.Err()

		case <-e.queue.Wait():
			// Op available, or queue closed; loop re-checks both.
		}
	}
}

// Stop closes the queue. Run applies what is already queued and returns;
// operations submitted afterwards fail with ErrStopped.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Pending returns the number of queued, not yet applied, operations.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Sequence returns the sequence numbering queued operations.
func (e *Engine) Sequence() *Sequence {
	return e.seq
}

func (e *Engine) submit(kind OpKind, coll Collection, id string, fields value.Record) *Op {
	op := newOp(kind, e.seq.Next(), coll, id, fields)
	if !e.queue.Enqueue(op) {
		op.finish(ErrStopped)
		return op
	}
	e.log.Debug("persistence op queued",
		"op", kind.String(),
		"collection", op.Collection,
		"id", id,
		"seq", op.Seq,
	)
	return op
}

// apply runs one operation against its collection.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) apply(ctx context.Context, op *Op) {
	var err error
	switch op.Kind {
	case OpInsert:
		var id string
		id, err = op.coll.Insert(ctx, op.fields)
		if err == nil && id != op.DocID {
			err = fmt.Errorf("store assigned id %q, expected %q", id, op.DocID)
		}
	case OpUpdate:
		op.affected, err = op.coll.Update(ctx, op.DocID, op.fields)
	case OpRemove:
		op.affected, err = op.coll.Remove(ctx, op.DocID)
	case OpFind:
		op.record, op.found, err = op.coll.FindOne(ctx, op.DocID)
	default:
		err = fmt.Errorf("unknown op kind: %d", op.Kind)
	}

	if err != nil {
		e.log.Error("persistence op failed",
			"op", op.Kind.String(),
			"collection", op.Collection,
			"id", op.DocID,
			"seq", op.Seq,
			"error", err,
		)
		if e.errSink != nil {
			e.errSink(op, err)
		}
	} else {
		e.log.Debug("persistence op applied",
			"op", op.Kind.String(),
			"collection", op.Collection,
			"id", op.DocID,
			"seq", op.Seq,
		)
	}
	op.finish(err)
}

// find queues a lookup behind any pending writes and waits for it.
func (e *Engine) find(ctx context.Context, coll Collection, id string) (value.Record, bool, error) {
	op := e.submit(OpFind, coll, id, nil)
	if err := op.Wait(ctx); err != nil {
		return nil, false, err
	}
	return op.record, op.found, nil
}
