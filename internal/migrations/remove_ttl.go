package migrations

import "case-migrator/internal/model"

// RemoveTTL returns the case data without its TTL field. The payload is a
// whole document, so it must be applied with model.MergeReplace.
func RemoveTTL(c *model.CaseDetails) (model.UpdatePayload, error) {
	payload := model.UpdatePayload(c.Data.Clone())
	delete(payload, model.TTLField)
	return payload, nil
}
