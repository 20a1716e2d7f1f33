package model

import "fmt"

// TTLField is the top-level case data key holding the TTL record.
const TTLField = "TTL"

type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// TTL decides when a case becomes eligible for automatic removal.
// A suspended TTL pauses expiry; OverrideTTL wins over SystemTTL when set.
type TTL struct {
	OverrideTTL *Date `json:"OverrideTTL"`
	Suspended   YesNo `json:"Suspended"`
	SystemTTL   *Date `json:"SystemTTL"`
}

// TTL reads the case's current TTL record.
func (d Data) TTL() (TTL, bool, error) {
	v, ok := d[TTLField]
	if !ok || v == nil {
		return TTL{}, false, nil
	}
	switch t := v.(type) {
	case TTL:
		return t, true, nil
	case *TTL:
		if t == nil {
			return TTL{}, false, nil
		}
		return *t, true, nil
	}

	m, ok := asMap(v)
	if !ok {
		return TTL{}, true, mismatch(TTLField, "object", v)
	}
	var ttl TTL
	override, found, err := m.Date("OverrideTTL")
	if err != nil {
		return TTL{}, true, fmt.Errorf("%s: %w", TTLField, err)
	}
	if found {
		ttl.OverrideTTL = &override
	}
	system, found, err := m.Date("SystemTTL")
	if err != nil {
		return TTL{}, true, fmt.Errorf("%s: %w", TTLField, err)
	}
	if found {
		ttl.SystemTTL = &system
	}
	suspended, _, err := m.String("Suspended")
	if err != nil {
		return TTL{}, true, fmt.Errorf("%s: %w", TTLField, err)
	}
	ttl.Suspended = YesNo(suspended)
	return ttl, true, nil
}
