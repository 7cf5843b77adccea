package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed schema/*/*.sql
var schemaFS embed.FS

// Schema returns the embedded schema filesystem
func Schema() fs.FS {
	fs, err := fs.Sub(schemaFS, "schema")
	if err != nil {
		panic(err) // should never happen since we control the embed path
	}
	return fs
}

// Files lists the embedded schema files in the order Apply runs them.
func Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(Schema(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Apply executes every embedded schema file against the pool.
// The scripts only use IF NOT EXISTS statements, so Apply is idempotent.
func Apply(ctx context.Context, pool *sqlitex.Pool) error {
	files, err := Files()
	if err != nil {
		return fmt.Errorf("migrations: list schema: %w", err)
	}

	conn, err := pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("migrations: take connection: %w", err)
	}
	defer pool.Put(conn)

	schema := Schema()
	for _, path := range files {
		sqlBytes, err := fs.ReadFile(schema, path)
		if err != nil {
			return fmt.Errorf("migrations: read %s: %w", path, err)
		}
		if err := sqlitex.ExecuteScript(conn, string(sqlBytes), nil); err != nil {
			return fmt.Errorf("migrations: execute %s: %w", path, err)
		}
	}
	return nil
}
