// Package store holds the SQL for every table the service touches.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/nikhil/chapterhub/internal/database"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyMember = errors.New("already a member of this channel")
	ErrLastAdmin     = errors.New("a channel must keep at least one admin")
)

// Store runs queries against a database handle or an open transaction
type Store struct {
	db *sqlx.DB // nil inside a transaction
	q  sqlx.ExtContext
	sb sq.StatementBuilderType
}

// New creates a store on db
func New(db *sqlx.DB) *Store {
	return &Store{db: db, q: db, sb: database.Builder(db.DriverName())}
}

// WithTx runs fn inside one transaction, committing when fn returns nil.
// Called on a store that is already transactional it just runs fn.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if transaction is committed

	if err := fn(&Store{q: tx, sb: s.sb}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.GetContext(ctx, s.q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, s.q, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
