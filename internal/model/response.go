package model

type RunReport struct {
	RunMetadata RunMetadata      `json:"run_metadata"`
	Counts      RunCounts        `json:"counts"`
	Messages    []CaseMessage    `json:"messages"`
	Updates     []UpdateEnvelope `json:"updates,omitempty"`
}

type RunMetadata struct {
	RunID          string `json:"run_id"`
	MigrationID    string `json:"migration_id"`
	DryRun         bool   `json:"dry_run"`
	RunStartedAt   string `json:"run_started_at"`
	RunCompletedAt string `json:"run_completed_at"`
	RunDurationMs  int64  `json:"run_duration_ms"`
	RunOutcome     string `json:"run_outcome"`
}

type RunCounts struct {
	Selected  int `json:"selected"`
	Processed int `json:"processed"`
	Migrated  int `json:"migrated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

const (
	OutcomeSuccess = "SUCCESS"
	OutcomePartial = "PARTIAL"
	OutcomeFailure = "FAILURE"
)
