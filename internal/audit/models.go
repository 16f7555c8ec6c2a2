package audit

import "time"

// Event is emitted from domain logic to capture key lifecycle actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `db:"id" json:"id"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
	Actor     string    `db:"actor" json:"actor"`
	Subject   string    `db:"subject" json:"subject"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
}

// Actions recorded on donation lifecycle transitions.
const (
	ActionSubmitted        = "donation_submitted"
	ActionScheduled        = "donation_scheduled"
	ActionPastRecorded     = "past_donation_recorded"
	ActionApproved         = "donation_approved"
	ActionRejected         = "donation_rejected"
	ActionInventorySkipped = "inventory_mutation_skipped"
)
