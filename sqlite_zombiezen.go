package keyward

// This file creates the SQLite connection pool used by the user directory.
// If your application shares the database file it must share this pool too,
// passing it with WithZombiezenPool, to avoid SQLITE_BUSY errors between
// independent pools.

import (
	"fmt"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/keyward/keyward/config"
)

// WithZombiezenPool makes the App use an existing pool. The caller is
// responsible for closing it; migrations are still applied.
func WithZombiezenPool(pool *sqlitex.Pool) Option {
	if pool == nil {
		panic("zombiezen pool cannot be nil")
	}
	return func(i *initializer) {
		i.pool = pool
	}
}

// NewZombiezenPool opens the pool described by cfg. A zero PoolSize uses one
// connection per CPU. Every connection gets the configured busy_timeout so
// concurrent signups wait for the write lock instead of failing.
func NewZombiezenPool(cfg config.DB) (*sqlitex.Pool, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	busyTimeout := fmt.Sprintf("PRAGMA busy_timeout = %d;", cfg.BusyTimeout.Milliseconds())

	// default flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL | sqlite.OpenURI
	pool, err := sqlitex.NewPool("file:"+cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, busyTimeout, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create zombiezen pool at %s: %w", cfg.Path, err)
	}
	return pool, nil
}
