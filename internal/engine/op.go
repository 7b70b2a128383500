package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/roach88/wizard/internal/value"
)

// Sequence numbers queued operations in submission order, which is also
// the order the worker applies them. Safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// NewSequence returns a sequence whose first number is start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

// Next allocates the next number.
func (s *Sequence) Next() int64 { return s.n.Add(1) }

// Last returns the most recently allocated number, 0 if none.
func (s *Sequence) Last() int64 { return s.n.Load() }

// OpKind distinguishes persistence operations.
type OpKind int

const (
	// OpInsert creates a document.
	OpInsert OpKind = iota + 1
	// OpUpdate writes the full field set of an existing document.
	OpUpdate
	// OpRemove deletes a document.
	OpRemove
	// OpFind loads a document.
	OpFind
)

// String returns the operation name used in logs.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	case OpFind:
		return "find"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is a queued persistence operation and its completion handle.
//
// Operations are applied by Engine.Run in submission order. Callers may
// ignore the handle (fire and forget), poll Done, or block in Wait.
type Op struct {
	Kind       OpKind
	Seq        int64
	Collection string
	DocID      string

	coll   Collection
	fields value.Record

	done chan struct{}

	// Set by the worker before done is closed.
	affected int64
	record   value.Record
	found    bool
	err      error
}

func newOp(kind OpKind, seq int64, coll Collection, id string, fields value.Record) *Op {
	return &Op{
		Kind:       kind,
		Seq:        seq,
		Collection: coll.Name(),
		DocID:      id,
		coll:       coll,
		fields:     fields,
		done:       make(chan struct{}),
	}
}

// Done is closed once the operation has been applied or has failed.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation completes or ctx is done, and returns
// the operation error.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the operation error. It is nil until Done is closed.
func (o *Op) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Affected returns the number of documents the store reported changed by
// an update or remove. Valid after Done is closed.
func (o *Op) Affected() int64 {
	<-o.done
	return o.affected
}

func (o *Op) finish(err error) {
	o.err = err
	close(o.done)
}

func (o *Op) String() string {
	return fmt.Sprintf("%s %s/%s (seq=%d)", o.Kind, o.Collection, o.DocID, o.Seq)
}
