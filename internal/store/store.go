// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package store implements the canonical state store: a composite-key
// record store with conditional writes and an ordered change feed.
//
// Every record is addressed by (partition key, sort key). Writes can
// carry a condition; a failed condition rejects the write without
// emitting a change. Successful mutations emit a Change on the feed in
// commit order, so a consumer replaying the feed observes the same
// per-partition order the store applied.
package store

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
)

// Mutation conditions.
type Condition int

const (
	// ConditionNone applies the write unconditionally.
	ConditionNone Condition = iota
	// IfNotExists rejects the write when a record already exists at the
	// key. Used for write-once records such as plays.
	IfNotExists
	// IfSequenceNewer rejects the write unless the incoming record's
	// Sequence is strictly greater than the stored one. Used for the
	// current-score record so out-of-order delivery never regresses it.
	IfSequenceNewer
)

var (
	// ErrNotFound is returned when no record exists at the key.
	ErrNotFound = errors.New("store: record not found")
	// ErrConditionFailed is returned when an IfNotExists write finds an
	// existing record.
	ErrConditionFailed = errors.New("store: condition failed")
	// ErrStaleSequence is returned when an IfSequenceNewer write carries
	// a sequence at or below the stored one.
	ErrStaleSequence = errors.New("store: stale sequence")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Record is one stored item. Value holds the JSON-encoded payload;
// Sequence is only meaningful for records guarded by IfSequenceNewer.
type Record struct {
	PK       string `json:"pk"`
	SK       string `json:"sk"`
	Sequence int64  `json:"sequence"`
	Value    []byte `json:"value"`
}

// NewRecord builds a Record with a JSON-encoded payload.
func NewRecord(pk, sk string, sequence int64, v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, err
	}
	return Record{PK: pk, SK: sk, Sequence: sequence, Value: data}, nil
}

// Unmarshal decodes the record payload into v.
func (r *Record) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Value, v)
}

// Change kinds.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// Change describes one committed mutation. Before is nil for inserts,
// After is nil for deletes.
type Change struct {
	Kind   string
	Before *Record
	After  *Record
}

// Key returns the (pk, sk) the change applies to.
func (c Change) Key() (string, string) {
	if c.After != nil {
		return c.After.PK, c.After.SK
	}
	return c.Before.PK, c.Before.SK
}

// Store is the state store consumed by the stream processor and the
// change reactors.
type Store interface {
	// Get returns the record at (pk, sk) or ErrNotFound.
	Get(ctx context.Context, pk, sk string) (*Record, error)
	// Query returns all records in a partition whose sort key starts
	// with skPrefix, in lexicographic sort-key order. An empty prefix
	// returns the whole partition.
	Query(ctx context.Context, pk, skPrefix string) ([]Record, error)
	// Put writes the record subject to the condition. A condition
	// failure returns ErrConditionFailed or ErrStaleSequence and leaves
	// the store untouched.
	Put(ctx context.Context, rec Record, cond Condition) error
	// Delete removes the record at (pk, sk). Deleting a missing record
	// is a no-op.
	Delete(ctx context.Context, pk, sk string) error
	// Changes returns the change feed. The feed delivers every
	// committed mutation at least once, in commit order. It is closed
	// when the store closes.
	Changes() <-chan Change
	Close() error
}
