// Package store reads the integration data the gateway needs at request
// time: the hook that carries an account's provider settings, and the
// messages of a conversation referenced by display id.
//
// The store is read-only. Writes to hooks and conversations belong to the
// support application that owns those tables.
//
// Dependency rule: store imports ai and event for their value types only. It
// never imports api or rpc.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

// Schema is the DDL for the tables the store reads. It is applied by the
// integration tests, and at startup when DB_MIGRATE is set.
//
//go:embed schema.sql
var Schema string

// ErrNotFound is returned when a hook or conversation does not exist for the
// given account.
var ErrNotFound = errors.New("store: not found")

// Store holds the connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *sql.DB
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified (e.g. via PingContext) before calling New.
func New(pool *sql.DB) *Store {
	return &Store{pool: pool}
}

// Migrate applies Schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// txFunc receives a transaction-scoped handle. Returning a non-nil error
// causes withReadTx to roll back.
type txFunc func(ctx context.Context, tx *sql.Tx) error

// withReadTx runs fn inside a read-only, repeatable-read transaction so
// multi-query reads see one snapshot. The transaction is always rolled back;
// there is nothing to commit.
func (s *Store) withReadTx(ctx context.Context, fn txFunc) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	// Roll back on panic so the connection is never left in a broken state.
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("store: end transaction: %w", err)
	}
	return nil
}
