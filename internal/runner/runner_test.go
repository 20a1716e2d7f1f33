package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-migrator/internal/casestore"
	"case-migrator/internal/migrations"
	"case-migrator/internal/model"
)

func seededStore() *casestore.Memory {
	store := casestore.NewMemory()
	created := model.NewDateTime(2024, time.January, 1, 0, 0)
	store.Put(
		&model.CaseDetails{ID: 1, State: model.StateDraft, CreatedDate: created, Data: model.Data{}},
		&model.CaseDetails{ID: 2, State: model.StateSubmitted, CreatedDate: created, Data: model.Data{"dateSubmitted": "2024-01-15"}},
		&model.CaseDetails{ID: 3, State: model.StateAwaitingPayment, CreatedDate: created, Data: model.Data{}},
		&model.CaseDetails{ID: 4, State: "Closed", CreatedDate: created, Data: model.Data{}},
		&model.CaseDetails{ID: 5, State: model.StateDraft, CreatedDate: created, Data: model.Data{
			model.TTLField: map[string]any{"OverrideTTL": nil, "Suspended": "No", "SystemTTL": "2024-03-31"},
		}},
	)
	return store
}

func newRunner(store *casestore.Memory, opts Options, regOpts ...migrations.Option) *Runner {
	reg := migrations.New(zerolog.Nop(), regOpts...)
	return New(reg, store, store, store, zerolog.Nop(), opts)
}

func TestRunTTLAssignmentContinuesPastFailures(t *testing.T) {
	store := seededStore()
	r := newRunner(store, Options{PageSize: 2})

	report, err := r.Run(context.Background(), model.RunRequest{MigrationID: migrations.AssignTTLID})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePartial, report.RunMetadata.RunOutcome)
	assert.Equal(t, migrations.AssignTTLID, report.RunMetadata.MigrationID)
	assert.NotEmpty(t, report.RunMetadata.RunID)
	assert.Equal(t, 4, report.Counts.Selected, "case 5 already has a TTL")
	assert.Equal(t, 2, report.Counts.Migrated)
	assert.Equal(t, 2, report.Counts.Failed)

	require.Len(t, report.Messages, 2)
	assert.Equal(t, int64(3), report.Messages[0].CaseID)
	assert.Equal(t, model.CodeMissingExpectedField, report.Messages[0].Code)
	assert.Equal(t, int64(4), report.Messages[1].CaseID)
	assert.Equal(t, model.CodeInvalidState, report.Messages[1].Code)
	assert.Equal(t, 1, report.Messages[1].ID)

	c, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	ttl, ok, err := c.Data.TTL()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-03-31", ttl.SystemTTL.String())

	c, err = store.Get(context.Background(), 2)
	require.NoError(t, err)
	ttl, _, err = c.Data.TTL()
	require.NoError(t, err)
	assert.Equal(t, "2124-01-15", ttl.SystemTTL.String())

	// A second sweep finds only the cases that failed.
	report, err = r.Run(context.Background(), model.RunRequest{MigrationID: migrations.AssignTTLID})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Counts.Selected)
	assert.Equal(t, model.OutcomeFailure, report.RunMetadata.RunOutcome)
}

func TestRunDryRunDoesNotPersist(t *testing.T) {
	store := seededStore()
	r := newRunner(store, Options{})

	report, err := r.Run(context.Background(), model.RunRequest{
		MigrationID: migrations.SuspendTTLID,
		CaseIDs:     []int64{5},
		DryRun:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, report.RunMetadata.RunOutcome)
	require.Len(t, report.Updates, 1)
	assert.Equal(t, []map[string]any{
		{"op": "replace", "path": "/TTL/Suspended", "value": "Yes"},
	}, report.Updates[0].Patch)

	c, err := store.Get(context.Background(), 5)
	require.NoError(t, err)
	ttl, _, err := c.Data.TTL()
	require.NoError(t, err)
	assert.Equal(t, model.No, ttl.Suspended)
}

func TestRunByCaseIDsReportsMissingCases(t *testing.T) {
	store := seededStore()
	r := newRunner(store, Options{})

	report, err := r.Run(context.Background(), model.RunRequest{
		MigrationID: migrations.SuspendTTLID,
		CaseIDs:     []int64{1, 99},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Migrated)
	assert.Equal(t, 1, report.Counts.Failed)
	assert.Equal(t, model.CodeCaseNotFound, report.Messages[0].Code)

	c, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	ttl, _, err := c.Data.TTL()
	require.NoError(t, err)
	assert.Equal(t, model.TTL{Suspended: model.Yes}, ttl)
}

func TestRunLogOnlyLeavesCasesUnchanged(t *testing.T) {
	store := seededStore()
	r := newRunner(store, Options{})

	report, err := r.Run(context.Background(), model.RunRequest{MigrationID: migrations.LogOnlyID})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Counts.Selected)
	assert.Equal(t, 2, report.Counts.Unchanged)
	assert.Equal(t, 0, report.Counts.Migrated)
	assert.Equal(t, model.OutcomeSuccess, report.RunMetadata.RunOutcome)
}

func TestRunRemoveTTL(t *testing.T) {
	store := seededStore()
	r := newRunner(store, Options{}, migrations.WithRemoveTTL())

	report, err := r.Run(context.Background(), model.RunRequest{MigrationID: migrations.RemoveTTLID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Migrated)

	c, err := store.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.NotContains(t, c.Data, model.TTLField)
}

func TestRunMaxCases(t *testing.T) {
	store := seededStore()
	r := newRunner(store, Options{PageSize: 1, MaxCases: 3})

	report, err := r.Run(context.Background(), model.RunRequest{MigrationID: migrations.AssignTTLID, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Counts.Selected)
}

func TestRunRejectsBadMigrationID(t *testing.T) {
	r := newRunner(seededStore(), Options{})

	_, err := r.Run(context.Background(), model.RunRequest{MigrationID: "NOT_A_MIGRATION"})
	assert.ErrorIs(t, err, migrations.ErrUnknownMigration)

	_, err = r.Run(context.Background(), model.RunRequest{})
	assert.ErrorIs(t, err, migrations.ErrNullArgument)

	// Registered, but only runnable against explicit case ids.
	_, err = r.Run(context.Background(), model.RunRequest{MigrationID: migrations.SuspendTTLID})
	assert.ErrorIs(t, err, ErrNoSelectionQuery)
	assert.NotErrorIs(t, err, migrations.ErrUnknownMigration)
	assert.Contains(t, err.Error(), migrations.SuspendTTLID)
}

func TestRunCancelled(t *testing.T) {
	r := newRunner(seededStore(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, model.RunRequest{MigrationID: migrations.SuspendTTLID, CaseIDs: []int64{1}})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSink struct{}

func (failingSink) Apply(context.Context, *model.UpdateEnvelope) error {
	return errors.New("case store unavailable")
}

func TestRunSinkFailure(t *testing.T) {
	store := seededStore()
	r := New(migrations.New(zerolog.Nop()), store, store, failingSink{}, zerolog.Nop(), Options{})

	report, err := r.Run(context.Background(), model.RunRequest{MigrationID: migrations.SuspendTTLID, CaseIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Counts.Failed)
	assert.Equal(t, model.OutcomeFailure, report.RunMetadata.RunOutcome)
	for _, m := range report.Messages {
		assert.Equal(t, model.CodeSinkFailure, m.Code)
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, model.CodeTypeMismatch, Code(model.ErrTypeMismatch))
	assert.Equal(t, model.CodeMigrationFailed, Code(errors.New("boom")))
	assert.Equal(t, model.CodeNullArgument, Code(migrations.ErrNullArgument))
}
