package migrations

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"case-migrator/internal/model"
	"case-migrator/internal/query"
)

// Registered migration ids. The harness passes these through verbatim.
const (
	LogOnlyID    = "ADOP-log"
	AssignTTLID  = "ADOP-2555"
	SuspendTTLID = "ADOP-2555-suspend"
	RemoveTTLID  = "ADOP-2555-remove"
)

// Query logging renders this page; it does not bound what callers fetch.
const (
	logPageSize   = 100
	logPageOffset = 0
)

// Registry maps migration ids to their transformation, selection query and
// merge mode. It is filled by New and never changes afterwards, so it is safe
// for concurrent use.
type Registry struct {
	logger     zerolog.Logger
	migrations map[string]Migration
	queries    map[string]query.Query
	modes      map[string]model.MergeMode
}

type Option func(*Registry)

// WithDefinition registers an extra migration, replacing any entry with the same id.
func WithDefinition(d Definition) Option {
	return func(r *Registry) {
		r.add(d)
	}
}

// WithRemoveTTL registers the TTL removal migration, which is off by default.
func WithRemoveTTL() Option {
	return WithDefinition(Definition{
		ID:        RemoveTTLID,
		Migration: MigrationFunc(RemoveTTL),
		Query:     query.FieldExists(model.TTLField),
		Mode:      model.MergeReplace,
	})
}

func New(logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:     logger.With().Str("component", "migrations").Logger(),
		migrations: make(map[string]Migration),
		queries:    make(map[string]query.Query),
		modes:      make(map[string]model.MergeMode),
	}

	for _, d := range defaultDefinitions() {
		r.add(d)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultDefinitions() []Definition {
	return []Definition{
		{
			ID:        LogOnlyID,
			Migration: MigrationFunc(LogOnly),
			Query:     query.CasesInState(model.StateDraft),
			Mode:      model.MergePartial,
		},
		{
			ID:        AssignTTLID,
			Migration: MigrationFunc(assignTTL),
			Query:     query.FieldDoesNotExist(model.TTLField),
			Mode:      model.MergePartial,
		},
		{
			ID:        SuspendTTLID,
			Migration: MigrationFunc(suspendTTL),
			Mode:      model.MergePartial,
		},
	}
}

func (r *Registry) add(d Definition) {
	r.migrations[d.ID] = d.Migration
	if d.Query != nil {
		r.queries[d.ID] = d.Query
	} else {
		delete(r.queries, d.ID)
	}
	mode := d.Mode
	if mode == "" {
		mode = model.MergePartial
	}
	r.modes[d.ID] = mode
}

func unknownMigration(id string) error {
	return fmt.Errorf("%w: no migration mapped to %s", ErrUnknownMigration, id)
}

// Validate fails with ErrUnknownMigration if id is not registered.
func (r *Registry) Validate(id string) error {
	if _, ok := r.migrations[id]; !ok {
		return unknownMigration(id)
	}
	return nil
}

// Query returns the selection query registered for id. A migration can be
// registered without one; that is reported as ErrUnknownMigration too.
func (r *Registry) Query(id string) (query.Query, error) {
	q, ok := r.queries[id]
	if !ok {
		return nil, unknownMigration(id)
	}

	body, err := query.ToQueryContext(q, logPageSize, logPageOffset).JSON()
	if err != nil {
		r.logger.Warn().Err(err).Str("migration_id", id).Msg("render query")
	} else {
		r.logger.Info().Str("migration_id", id).RawJSON("query", body).Msg("migration query")
	}
	return q, nil
}

// Accepts returns the pre-screen applied before migrating a case. Every
// case passes; the per-migration rules and queries do the filtering.
func (r *Registry) Accepts() func(*model.CaseDetails) bool {
	return func(*model.CaseDetails) bool { return true }
}

// Migrate runs migration id against c and returns its payload unchanged.
func (r *Registry) Migrate(c *model.CaseDetails, id string) (model.UpdatePayload, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: migration id must not be empty", ErrNullArgument)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: case must not be nil", ErrNullArgument)
	}
	m, ok := r.migrations[id]
	if !ok {
		return nil, unknownMigration(id)
	}
	return m.Migrate(c)
}

// Mode returns how the payloads of migration id are merged into case data.
func (r *Registry) Mode(id string) (model.MergeMode, error) {
	mode, ok := r.modes[id]
	if !ok {
		return "", unknownMigration(id)
	}
	return mode, nil
}

// IDs lists the registered migration ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.migrations))
	for id := range r.migrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
