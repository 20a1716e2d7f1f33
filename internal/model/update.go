package model

// UpdatePayload maps top-level case data fields to their new values.
type UpdatePayload map[string]any

// MergeMode tells the update sink how to combine a payload with the stored data.
type MergeMode string

const (
	// MergePartial overwrites the payload's keys and leaves every other key alone.
	MergePartial MergeMode = "partial"
	// MergeReplace makes the payload the whole document; keys it omits are deleted.
	MergeReplace MergeMode = "replace"
)

// UpdateEnvelope is what a migration hands to the update sink for one case.
type UpdateEnvelope struct {
	CaseID      int64                    `json:"case_id"`
	MigrationID string                   `json:"migration_id"`
	Mode        MergeMode                `json:"mode"`
	Data        UpdatePayload            `json:"data"`
	Patch       []map[string]any `json:"patch"`
	Rollback    []map[string]any `json:"rollback"`
}

// Empty reports whether applying the envelope changes nothing.
func (e *UpdateEnvelope) Empty() bool {
	return len(e.Patch) == 0
}
