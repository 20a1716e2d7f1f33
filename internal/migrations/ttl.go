package migrations

import (
	"fmt"
	"slices"

	"case-migrator/internal/model"
)

const (
	draftRetentionDays    = 90
	retainedRetentionDays = 36524

	fieldApplicationPayments = "applicationPayments"
	fieldDateSubmitted       = "dateSubmitted"
	fieldPaymentCreated      = "created"
)

// ComputeTTL derives a fresh TTL record from the case's state. Any existing
// override or suspension is dropped.
func ComputeTTL(c *model.CaseDetails) (model.TTL, error) {
	var systemTTL model.Date

	switch c.State {
	case model.StateDraft:
		if c.CreatedDate.IsZero() {
			return model.TTL{}, missingField(c, "createdDate")
		}
		systemTTL = c.CreatedDate.Date().AddDays(draftRetentionDays)

	case model.StateAwaitingPayment:
		earliest, err := earliestPaymentDate(c)
		if err != nil {
			return model.TTL{}, err
		}
		systemTTL = earliest.AddDays(retainedRetentionDays)

	case model.StateSubmitted:
		submitted, ok, err := c.Data.Date(fieldDateSubmitted)
		if err != nil {
			return model.TTL{}, fmt.Errorf("case with id: %d: %w", c.ID, err)
		}
		if !ok {
			return model.TTL{}, missingField(c, fieldDateSubmitted)
		}
		systemTTL = submitted.AddDays(retainedRetentionDays)

	case model.StateLaSubmitted:
		if c.LastModified.IsZero() {
			return model.TTL{}, missingField(c, "lastModified")
		}
		systemTTL = c.LastModified.Date().AddDays(retainedRetentionDays)

	default:
		return model.TTL{}, fmt.Errorf("%w: case with id: %d in state %q", ErrInvalidState, c.ID, c.State)
	}

	return model.TTL{
		OverrideTTL: nil,
		Suspended:   model.No,
		SystemTTL:   &systemTTL,
	}, nil
}

func earliestPaymentDate(c *model.CaseDetails) (model.Date, error) {
	payments, ok, err := c.Data.Elements(fieldApplicationPayments)
	if err != nil {
		return model.Date{}, fmt.Errorf("case with id: %d: %w", c.ID, err)
	}
	if !ok || len(payments) == 0 {
		return model.Date{}, missingField(c, fieldApplicationPayments)
	}

	dates := make([]model.Date, 0, len(payments))
	for _, p := range payments {
		created, ok, err := p.Value.DateTime(fieldPaymentCreated)
		if err != nil {
			return model.Date{}, fmt.Errorf("case with id: %d: payment %s: %w", c.ID, p.ID, err)
		}
		if !ok {
			return model.Date{}, fmt.Errorf("%w: case with id: %d has payment %s without %s",
				ErrMissingExpectedField, c.ID, p.ID, fieldPaymentCreated)
		}
		dates = append(dates, created.Date())
	}

	slices.SortFunc(dates, func(a, b model.Date) int {
		return a.Compare(b.Time)
	})
	return dates[0], nil
}

func assignTTL(c *model.CaseDetails) (model.UpdatePayload, error) {
	ttl, err := ComputeTTL(c)
	if err != nil {
		return nil, err
	}
	return model.UpdatePayload{model.TTLField: ttl}, nil
}

func missingField(c *model.CaseDetails, field string) error {
	return fmt.Errorf("%w: case with id: %d has no %s in case data as expected", ErrMissingExpectedField, c.ID, field)
}
