package model

// Case lifecycle states the TTL rules know about.
const (
	StateDraft           = "Draft"
	StateAwaitingPayment = "AwaitingPayment"
	StateSubmitted       = "Submitted"
	StateLaSubmitted     = "LaSubmitted"
)

// CaseDetails is a snapshot of one case as loaded from the case store.
// Migrations treat it as read-only.
type CaseDetails struct {
	ID           int64    `json:"id"`
	State        string   `json:"state"`
	CreatedDate  DateTime `json:"created_date"`
	LastModified DateTime `json:"last_modified"`
	Data         Data     `json:"case_data"`
}

// Clone returns a snapshot that shares nothing mutable with c.
func (c *CaseDetails) Clone() *CaseDetails {
	out := *c
	out.Data = c.Data.Clone()
	return &out
}
