// Package update turns migration payloads into envelopes the case store can apply.
package update

import (
	"fmt"

	json "github.com/goccy/go-json"

	"case-migrator/internal/jsonpatch"
	"case-migrator/internal/model"
)

// Produce wraps a migration's payload for case c. The patch and rollback are
// computed against c's current data as the update sink would see it.
func Produce(c *model.CaseDetails, migrationID string, mode model.MergeMode, payload model.UpdatePayload) (*model.UpdateEnvelope, error) {
	current, err := normalize(c.Data)
	if err != nil {
		return nil, fmt.Errorf("case %d: normalize data: %w", c.ID, err)
	}
	data, err := normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("case %d: normalize payload: %w", c.ID, err)
	}

	merged, err := merge(current, data, mode)
	if err != nil {
		return nil, fmt.Errorf("case %d: %w", c.ID, err)
	}
	fwd, bwd := jsonpatch.DiffBoth(current, merged, "")

	return &model.UpdateEnvelope{
		CaseID:      c.ID,
		MigrationID: migrationID,
		Mode:        mode,
		Data:        model.UpdatePayload(data),
		Patch:       emptyIfNil(fwd),
		Rollback:    emptyIfNil(bwd),
	}, nil
}

// Merge applies env to current and returns the new document; current is not modified.
func Merge(current model.Data, env *model.UpdateEnvelope) (model.Data, error) {
	doc, err := normalize(current)
	if err != nil {
		return nil, fmt.Errorf("normalize data: %w", err)
	}
	data, err := normalize(env.Data)
	if err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	return merge(doc, data, env.Mode)
}

func merge(current, data model.Data, mode model.MergeMode) (model.Data, error) {
	switch mode {
	case model.MergeReplace:
		return data.Clone(), nil
	case model.MergePartial, "":
		out := current.Clone()
		for k, v := range data {
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown merge mode %q", mode)
	}
}

// normalize round-trips v through JSON so typed values (dates, TTL records,
// elements) become the plain maps, strings and json.Numbers the store holds.
func normalize[T ~map[string]any](v T) (model.Data, error) {
	if len(v) == 0 {
		return model.Data{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := model.DecodeJSONBytes(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return model.Data(out), nil
}

func emptyIfNil(ops []jsonpatch.Op) []map[string]any {
	if ops == nil {
		return []map[string]any{}
	}
	return ops
}
