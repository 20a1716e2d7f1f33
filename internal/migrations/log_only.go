package migrations

import "case-migrator/internal/model"

// LogOnly touches nothing; running it only marks the selected cases as visited.
func LogOnly(_ *model.CaseDetails) (model.UpdatePayload, error) {
	return model.UpdatePayload{}, nil
}
