package datastore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mangrove/mangrove/internal/logging"
)

// Options configures a Store.
type Options struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Timezone decides which day, week, month and year an event falls in
	// for the period views. Defaults to UTC.
	Timezone *time.Location
	Logger   *logging.Logger
}

// Store is the document store and view index. It implements
// aggregation.RowSource and aggregation.FormLookup.
type Store struct {
	db       *badger.DB
	ulids    *ulidSource
	location *time.Location
	logger   *logging.Logger
	closed   bool
	mu       sync.RWMutex
}

// Open creates or opens a store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, fmt.Errorf("datastore: path is required unless in memory")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	bopts.Logger = nil // Disable BadgerDB's default logging

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	loc := opts.Timezone
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Global().With("component", "datastore")
	}

	logger.Info("Datastore opened",
		"path", opts.Path,
		"in_memory", opts.InMemory,
		"timezone", loc.String())

	return &Store{
		db:       db,
		ulids:    newULIDSource(),
		location: loc,
		logger:   logger,
	}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.db.Close()
}

// Ping reports whether the store can serve reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

func (s *Store) checkOpen(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ctx.Err()
}

// getDocument loads and decodes the document at key, returning notFound
// when it does not exist.
func getDocument(txn *badger.Txn, key []byte, v any, notFound error) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return decodeDocument(val, v)
	})
}

func setDocument(txn *badger.Txn, key []byte, v any) error {
	data, err := encodeDocument(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}
