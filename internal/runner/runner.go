// Package runner drives a migration over a batch of cases: it selects cases
// through the index or by id, migrates each one and hands the update to the sink.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"case-migrator/internal/migrations"
	"case-migrator/internal/model"
	"case-migrator/internal/query"
	"case-migrator/internal/update"
)

const DefaultPageSize = 100

// ErrNoSelectionQuery means the migration is registered but can only run
// against explicit case ids.
var ErrNoSelectionQuery = errors.New("migration has no selection query; pass case_ids")

// Migrator is the part of the migration registry a run needs.
type Migrator interface {
	Validate(id string) error
	Query(id string) (query.Query, error)
	Accepts() func(*model.CaseDetails) bool
	Migrate(c *model.CaseDetails, id string) (model.UpdatePayload, error)
	Mode(id string) (model.MergeMode, error)
}

// Source loads a single case by id.
type Source interface {
	Get(ctx context.Context, id int64) (*model.CaseDetails, error)
}

// Index returns one page of cases matching a query and the total hit count.
type Index interface {
	Search(ctx context.Context, qc query.Context) ([]*model.CaseDetails, int, error)
}

// Sink applies an update envelope to the case store.
type Sink interface {
	Apply(ctx context.Context, env *model.UpdateEnvelope) error
}

type Options struct {
	PageSize int
	// MaxCases caps how many cases a query-driven run selects; 0 means no cap.
	MaxCases int
}

type Runner struct {
	migrator Migrator
	source   Source
	index    Index
	sink     Sink
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time
}

func New(migrator Migrator, source Source, index Index, sink Sink, logger zerolog.Logger, opts Options) *Runner {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Runner{
		migrator: migrator,
		source:   source,
		index:    index,
		sink:     sink,
		logger:   logger.With().Str("component", "runner").Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

// Run migrates every selected case. Failures of a single case are recorded in
// the report and the run moves on; an error is returned only when the run
// cannot start or the context is cancelled.
func (r *Runner) Run(ctx context.Context, req model.RunRequest) (*model.RunReport, error) {
	start := r.now()

	if req.MigrationID == "" {
		return nil, fmt.Errorf("%w: migration id must not be empty", migrations.ErrNullArgument)
	}
	if err := r.migrator.Validate(req.MigrationID); err != nil {
		return nil, err
	}
	mode, err := r.migrator.Mode(req.MigrationID)
	if err != nil {
		return nil, err
	}

	log := r.logger.With().Str("migration_id", req.MigrationID).Bool("dry_run", req.DryRun).Logger()

	caseIDs := req.CaseIDs
	if len(caseIDs) == 0 {
		caseIDs, err = r.selectCases(ctx, req.MigrationID)
		if err != nil {
			return nil, err
		}
	}
	log.Info().Int("cases", len(caseIDs)).Msg("migration run started")

	report := &model.RunReport{Messages: []model.CaseMessage{}}
	report.Counts.Selected = len(caseIDs)
	accepts := r.migrator.Accepts()

	addMessage := func(caseID int64, level, code, msg string) {
		report.Messages = append(report.Messages, model.CaseMessage{
			ID:      len(report.Messages),
			CaseID:  caseID,
			Level:   level,
			Code:    code,
			Message: msg,
		})
	}

	for _, id := range caseIDs {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("processed", report.Counts.Processed).Msg("migration run cancelled")
			return nil, err
		}
		report.Counts.Processed++

		c, err := r.source.Get(ctx, id)
		if err != nil {
			report.Counts.Failed++
			addMessage(id, model.LevelCritical, model.CodeCaseNotFound, err.Error())
			log.Error().Err(err).Int64("case_id", id).Msg("load case")
			continue
		}

		if !accepts(c) {
			report.Counts.Skipped++
			addMessage(id, model.LevelWarning, model.CodeNotAccepted, "case not accepted for migration")
			continue
		}

		payload, err := r.migrator.Migrate(c, req.MigrationID)
		if err != nil {
			report.Counts.Failed++
			addMessage(id, model.LevelCritical, Code(err), err.Error())
			log.Error().Err(err).Int64("case_id", id).Msg("migrate case")
			continue
		}

		env, err := update.Produce(c, req.MigrationID, mode, payload)
		if err != nil {
			report.Counts.Failed++
			addMessage(id, model.LevelCritical, Code(err), err.Error())
			log.Error().Err(err).Int64("case_id", id).Msg("produce update")
			continue
		}

		if req.DryRun {
			report.Updates = append(report.Updates, *env)
		} else if err := r.sink.Apply(ctx, env); err != nil {
			report.Counts.Failed++
			addMessage(id, model.LevelCritical, model.CodeSinkFailure, err.Error())
			log.Error().Err(err).Int64("case_id", id).Msg("apply update")
			continue
		}

		if env.Empty() {
			report.Counts.Unchanged++
		} else {
			report.Counts.Migrated++
		}
		log.Debug().Int64("case_id", id).Int("ops", len(env.Patch)).Msg("case migrated")
	}

	completed := r.now()
	elapsed := completed.Sub(start)

	report.RunMetadata = model.RunMetadata{
		RunID:          uuid.New().String(),
		MigrationID:    req.MigrationID,
		DryRun:         req.DryRun,
		RunStartedAt:   start.UTC().Format(time.RFC3339),
		RunCompletedAt: completed.UTC().Format(time.RFC3339),
		RunDurationMs:  elapsed.Milliseconds(),
		RunOutcome:     outcome(report.Counts),
	}

	log.Info().
		Str("run_id", report.RunMetadata.RunID).
		Str("outcome", report.RunMetadata.RunOutcome).
		Int("migrated", report.Counts.Migrated).
		Int("unchanged", report.Counts.Unchanged).
		Int("skipped", report.Counts.Skipped).
		Int("failed", report.Counts.Failed).
		Msg("migration run finished")

	return report, nil
}

// selectCases pages through the index and collects matching ids before any
// case is migrated, so updates that change what matches do not shift pages.
func (r *Runner) selectCases(ctx context.Context, migrationID string) ([]int64, error) {
	q, err := r.migrator.Query(migrationID)
	if errors.Is(err, migrations.ErrUnknownMigration) {
		// Validate already passed, so the id is registered without a query.
		return nil, fmt.Errorf("%s: %w", migrationID, ErrNoSelectionQuery)
	}
	if err != nil {
		return nil, err
	}

	var ids []int64
	for from := 0; ; from += r.opts.PageSize {
		page, total, err := r.index.Search(ctx, query.ToQueryContext(q, r.opts.PageSize, from))
		if err != nil {
			return nil, fmt.Errorf("search cases for %s: %w", migrationID, err)
		}
		for _, c := range page {
			ids = append(ids, c.ID)
			if r.opts.MaxCases > 0 && len(ids) >= r.opts.MaxCases {
				return ids, nil
			}
		}
		if len(page) == 0 || from+len(page) >= total {
			return ids, nil
		}
	}
}

func outcome(c model.RunCounts) string {
	switch {
	case c.Failed == 0:
		return model.OutcomeSuccess
	case c.Migrated+c.Unchanged > 0:
		return model.OutcomePartial
	default:
		return model.OutcomeFailure
	}
}

// Code maps a migration error to the message code reported for the case.
func Code(err error) string {
	switch {
	case errors.Is(err, migrations.ErrUnknownMigration):
		return model.CodeUnknownMigration
	case errors.Is(err, migrations.ErrNullArgument):
		return model.CodeNullArgument
	case errors.Is(err, migrations.ErrMissingExpectedField):
		return model.CodeMissingExpectedField
	case errors.Is(err, migrations.ErrInvalidState):
		return model.CodeInvalidState
	case errors.Is(err, model.ErrTypeMismatch):
		return model.CodeTypeMismatch
	default:
		return model.CodeMigrationFailed
	}
}
