// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/courtvision/internal/logging"
)

// keySep separates partition key from sort key in the Badger keyspace.
// Neither key component may contain a NUL byte.
const keySep = "\x00"

// Options configures a BadgerStore.
type Options struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string
	// InMemory runs Badger without persistence. Used in tests.
	InMemory bool
	// ChangeFeedSize is the change feed channel buffer.
	ChangeFeedSize int
	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration
}

// BadgerStore implements Store on BadgerDB. Mutations are serialized so
// the change feed order matches commit order.
type BadgerStore struct {
	db      *badger.DB
	mu      sync.Mutex
	changes chan Change
	closed  bool

	// pending buffers committed changes in commit order until the
	// emitter goroutine moves them onto the feed. Writers append and
	// return; they never wait on the feed consumer, so a reactor
	// writing back into the store cannot wedge against the dispatcher.
	pendingMu sync.Mutex
	pending   []Change
	kick      chan struct{}
	done      chan struct{}

	gcInterval time.Duration
	inMemory   bool
}

// compile-time interface check
var _ Store = (*BadgerStore)(nil)

// New opens the store. The caller owns the returned store and must
// Close it.
func New(opts Options) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	size := opts.ChangeFeedSize
	if size <= 0 {
		size = 1024
	}
	gc := opts.GCInterval
	if gc <= 0 {
		gc = 10 * time.Minute
	}

	s := &BadgerStore{
		db:         db,
		changes:    make(chan Change, size),
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		gcInterval: gc,
		inMemory:   opts.InMemory,
	}
	go s.emitLoop()
	return s, nil
}

func encodeKey(pk, sk string) []byte {
	return []byte(pk + keySep + sk)
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, pk, sk string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(pk, sk))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", pk, sk, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Query implements Store.
func (s *BadgerStore) Query(ctx context.Context, pk, skPrefix string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(pk + keySep + skPrefix)
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = prefix
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			// Guard against a pk that is itself a prefix of another pk.
			key := it.Item().Key()
			if !bytes.Contains(key, []byte(keySep)) {
				continue
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s/%s*: %w", pk, skPrefix, err)
	}
	return out, nil
}

// Put implements Store. Mutations are serialized under a single lock;
// throughput is bounded by one game's play rate, which is tiny next to
// Badger's write path.
func (s *BadgerStore) Put(ctx context.Context, rec Record, cond Condition) error {
	if rec.PK == "" || rec.SK == "" {
		return fmt.Errorf("store: empty key components")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	before, err := s.Get(ctx, rec.PK, rec.SK)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	switch cond {
	case IfNotExists:
		if before != nil {
			return ErrConditionFailed
		}
	case IfSequenceNewer:
		if before != nil && rec.Sequence <= before.Sequence {
			return ErrStaleSequence
		}
	}

	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal record %s/%s: %w", rec.PK, rec.SK, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(rec.PK, rec.SK), data)
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", rec.PK, rec.SK, err)
	}

	change := Change{Kind: ChangeInsert, After: &rec}
	if before != nil {
		change.Kind = ChangeUpdate
		change.Before = before
	}
	s.emit(change)
	return nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, pk, sk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	before, err := s.Get(ctx, pk, sk)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encodeKey(pk, sk))
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", pk, sk, err)
	}

	s.emit(Change{Kind: ChangeDelete, Before: before})
	return nil
}

// emit queues a committed change for the feed. Called under s.mu so
// queue order matches commit order. Never blocks.
func (s *BadgerStore) emit(c Change) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, c)
	s.pendingMu.Unlock()
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// emitLoop moves queued changes onto the feed in commit order. It owns
// closing the feed channel.
func (s *BadgerStore) emitLoop() {
	for {
		select {
		case <-s.kick:
			s.flush()
		case <-s.done:
			s.finalFlush()
			close(s.changes)
			return
		}
	}
}

// flush drains the pending queue onto the feed, blocking on a full feed
// until the consumer catches up or the store closes.
func (s *BadgerStore) flush() {
	for {
		s.pendingMu.Lock()
		batch := s.pending
		s.pending = nil
		s.pendingMu.Unlock()
		if len(batch) == 0 {
			return
		}
		for i, c := range batch {
			select {
			case s.changes <- c:
			case <-s.done:
				// Requeue the remainder for the final flush.
				s.pendingMu.Lock()
				s.pending = append(batch[i:], s.pending...)
				s.pendingMu.Unlock()
				return
			}
		}
	}
}

// finalFlush delivers whatever still fits in the feed buffer at close
// and drops the rest so Close never hangs on a departed consumer.
func (s *BadgerStore) finalFlush() {
	s.pendingMu.Lock()
	rest := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	dropped := 0
	for _, c := range rest {
		select {
		case s.changes <- c:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logging.Warn().Int("dropped", dropped).Msg("undelivered changes dropped at store close")
	}
}

// Changes implements Store.
func (s *BadgerStore) Changes() <-chan Change {
	return s.changes
}

// Close implements Store. Stops the emitter, which closes the change
// feed, then closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	return s.db.Close()
}

// Serve runs the value-log garbage collector until the context ends,
// making the store directly supervisable.
func (s *BadgerStore) Serve(ctx context.Context) error {
	if s.inMemory {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Rerun until the GC finds nothing to rewrite.
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("badger value log GC failed")
					}
					break
				}
			}
		}
	}
}

func (s *BadgerStore) String() string { return "state-store" }
