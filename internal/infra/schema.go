package infra

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaFiles lists the embedded schema scripts in apply order.
func SchemaFiles() ([]string, error) {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// EnsureSchema applies every embedded script. Scripts are idempotent so this
// runs on each start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := SchemaFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		sql, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
