package postgres

import (
	"context"
	"fmt"

	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/types"
	"github.com/jmoiron/sqlx"
)

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// TxFromContext returns the transaction from context if it exists
	TxFromContext(ctx context.Context) *sqlx.Tx

	// Querier returns the current transaction if in a transaction, or the
	// regular connection pool
	Querier(ctx context.Context) sqlx.ExtContext
}

// Client wraps sqlx.DB to provide transaction management. Each transaction is
// bounded by the configured max-wait (postgres lock_timeout) and max-execution
// (statement_timeout plus a context deadline), since anchor-run transactions
// touch several tables with uniqueness checks.
type Client struct {
	db     *sqlx.DB
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewClient creates a new client wrapper with transaction management
func NewClient(db *sqlx.DB, cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// WithTx wraps the given function in a transaction
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// If we're already in a transaction, reuse it and do not commit it here
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	txCtx := ctx
	var cancel context.CancelFunc
	if timeout := c.cfg.Billing.TxTimeout; timeout > 0 {
		txCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := c.db.BeginTxx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	if maxWait := c.cfg.Billing.TxMaxWait; maxWait > 0 {
		if _, err := tx.ExecContext(txCtx,
			fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", maxWait.Milliseconds())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("setting lock timeout: %w", err)
		}
	}
	if timeout := c.cfg.Billing.TxTimeout; timeout > 0 {
		if _, err := tx.ExecContext(txCtx,
			fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeout.Milliseconds())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("setting statement timeout: %w", err)
		}
	}

	// Ensure transaction is rolled back on panic
	defer func() {
		if v := recover(); v != nil {
			c.logger.Errorw("rolling back transaction due to panic",
				"panic", v,
			)
			_ = tx.Rollback()
			panic(v)
		}
	}()

	// Create new context with transaction
	txCtx = context.WithValue(txCtx, types.CtxDBTransaction, tx)

	if err := fn(txCtx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("rolling back transaction: %v (original error: %w)", rerr, err)
		}
		c.logger.Errorw("rolling back transaction due to error",
			"error", err,
		)
		return err
	}

	if err := tx.Commit(); err != nil {
		c.logger.Errorw("committing transaction",
			"error", err,
		)
		return fmt.Errorf("committing transaction: %w", err)
	}

	c.logger.Debugw("committed transaction")
	return nil
}

// TxFromContext returns the transaction from context if it exists
func (c *Client) TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// Querier returns the current transaction if in a transaction, or the pool
func (c *Client) Querier(ctx context.Context) sqlx.ExtContext {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}
