package migrations

import (
	"fmt"

	"case-migrator/internal/model"
)

// ComputeSuspendTTL keeps any existing override and system TTL and marks the TTL suspended.
func ComputeSuspendTTL(c *model.CaseDetails) (model.TTL, error) {
	ttl := model.TTL{Suspended: model.Yes}

	prior, ok, err := c.Data.TTL()
	if err != nil {
		return model.TTL{}, fmt.Errorf("case with id: %d: %w", c.ID, err)
	}
	if ok {
		ttl.OverrideTTL = prior.OverrideTTL
		ttl.SystemTTL = prior.SystemTTL
	}
	return ttl, nil
}

func suspendTTL(c *model.CaseDetails) (model.UpdatePayload, error) {
	ttl, err := ComputeSuspendTTL(c)
	if err != nil {
		return nil, err
	}
	return model.UpdatePayload{model.TTLField: ttl}, nil
}
