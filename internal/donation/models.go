package donation

import (
	"time"

	"hemobank/internal/inventory"
)

// Units per submission are bounded; nobody donates more than a few units at
// once.
const (
	MinUnitsPerDonation = 1
	MaxUnitsPerDonation = 3
)

// PastDonationWindowDays bounds how far back a historical donation entry may
// be dated.
const PastDonationWindowDays = 90

// Status is the authoritative lifecycle state of a donation record. Exactly
// one applies at any time.
type Status string

const (
	StatusPendingAdminApproval Status = "pending_admin_approval"
	StatusScheduled            Status = "scheduled"
	StatusCompleted            Status = "completed"
	StatusRejected             Status = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Open reports whether the record counts against the one-outstanding-request
// rule.
func (s Status) Open() bool {
	return s == StatusPendingAdminApproval || s == StatusScheduled
}

// VerificationStatus tracks how a record was verified. It is a strict
// function of the transition taken, never independently settable:
// submissions and auto-completed past donations carry ai_verified, an admin
// approval sets admin_approved, a rejection sets rejected.
type VerificationStatus string

const (
	VerificationAIVerified    VerificationStatus = "ai_verified"
	VerificationAdminApproved VerificationStatus = "admin_approved"
	VerificationRejected      VerificationStatus = "rejected"
)

// DecisionAction is an admin decision on a pending record.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// DonationRecord is a single donation submission. Records are never deleted,
// only transitioned, so history stays queryable.
type DonationRecord struct {
	ID                 string               `db:"id" json:"id"`
	DonorID            string               `db:"donor_id" json:"donor_id"`
	BloodGroup         inventory.BloodGroup `db:"blood_group" json:"blood_group,omitempty"`
	UnitsRequested     int                  `db:"units_requested" json:"units_requested"`
	DonationCenter     string               `db:"donation_center" json:"donation_center"`
	DonationDate       time.Time            `db:"donation_date" json:"donation_date"`
	ScheduledTime      *string              `db:"scheduled_time" json:"scheduled_time,omitempty"`
	Status             Status               `db:"status" json:"status"`
	VerificationStatus VerificationStatus   `db:"verification_status" json:"verification_status"`
	RiskScore          int                  `db:"risk_score" json:"risk_score"`
	AdminNotes         *string              `db:"admin_notes" json:"admin_notes,omitempty"`
	ApprovedBy         *string              `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time           `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt          time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time            `db:"updated_at" json:"updated_at"`
}
