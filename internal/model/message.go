package model

// CaseMessage records why a case in a run was skipped or failed.
type CaseMessage struct {
	ID      int    `json:"id"`
	CaseID  int64  `json:"case_id,omitempty"`
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
)

const (
	CodeUnknownMigration     = "UNKNOWN_MIGRATION"
	CodeNullArgument         = "NULL_ARGUMENT"
	CodeMissingExpectedField = "MISSING_EXPECTED_FIELD"
	CodeInvalidState         = "INVALID_STATE"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeCaseNotFound         = "CASE_NOT_FOUND"
	CodeNotAccepted          = "NOT_ACCEPTED"
	CodeSinkFailure          = "SINK_FAILURE"
	CodeMigrationFailed      = "MIGRATION_FAILED"
)
