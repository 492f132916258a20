package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAcquire marks failures that happened before a transaction began, so
// no statement of the unit of work has run.
var ErrAcquire = errors.New("acquire postgres connection")

type PostgresOptions struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	ConnectTimeout   time.Duration
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	LockTimeout      time.Duration
	IdleInTxTimeout  time.Duration
}

// Postgres is the store handle. Create one per process with ConnectPostgres
// and release it with Close.
type Postgres struct {
	Pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func ConnectPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	if opts.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	setTimeoutParam(poolConfig, "statement_timeout", opts.StatementTimeout)
	setTimeoutParam(poolConfig, "lock_timeout", opts.LockTimeout)
	setTimeoutParam(poolConfig, "idle_in_transaction_session_timeout", opts.IdleInTxTimeout)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres: %w", err)
	}

	return &Postgres{Pool: pool, acquireTimeout: opts.AcquireTimeout}, nil
}

func setTimeoutParam(cfg *pgxpool.Config, name string, d time.Duration) {
	if d <= 0 {
		return
	}
	cfg.ConnConfig.RuntimeParams[name] = strconv.FormatInt(d.Milliseconds(), 10)
}

// InTx runs fn inside a transaction on a dedicated connection. Once the
// transaction has begun, fn runs on a context that ignores the caller's
// cancellation; the session timeouts bound it instead. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (p *Postgres) InTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	conn, err := p.Pool.Acquire(acquireCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	defer conn.Release()

	txCtx := context.WithoutCancel(ctx)
	tx, err := conn.BeginTx(txCtx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(txCtx)
		}
	}()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func (p *Postgres) Close() {
	if p == nil || p.Pool == nil {
		return
	}
	p.Pool.Close()
}
