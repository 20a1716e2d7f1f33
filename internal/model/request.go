package model

// RunRequest asks for one migration over a batch of cases. Without CaseIDs
// the migration's registered query selects the cases.
type RunRequest struct {
	MigrationID string  `json:"migration_id"`
	CaseIDs     []int64 `json:"case_ids,omitempty"`
	DryRun      bool    `json:"dry_run"`
}
