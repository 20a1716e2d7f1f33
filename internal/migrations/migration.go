package migrations

import (
	"case-migrator/internal/model"
	"case-migrator/internal/query"
)

// Migration computes the partial update for one case. Implementations must
// not modify the snapshot and must either return the whole payload or an error.
type Migration interface {
	Migrate(c *model.CaseDetails) (model.UpdatePayload, error)
}

// MigrationFunc adapts a plain function to Migration.
type MigrationFunc func(c *model.CaseDetails) (model.UpdatePayload, error)

func (f MigrationFunc) Migrate(c *model.CaseDetails) (model.UpdatePayload, error) {
	return f(c)
}

// Definition is one registry entry. Query is nil for migrations that are
// only ever run against explicit case ids.
type Definition struct {
	ID        string
	Migration Migration
	Query     query.Query
	Mode      model.MergeMode
}
