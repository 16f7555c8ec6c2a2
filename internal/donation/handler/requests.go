package handler

import (
	"strings"
	"time"

	"hemobank/internal/donation"
	"hemobank/internal/eligibility"
	dErrors "hemobank/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// WalkInRequest is the HTTP request body for POST /donations/walk-in.
type WalkInRequest struct {
	DonationCenter string              `json:"donation_center"`
	Units          int                 `json:"units"`
	Vitals         *eligibility.Vitals `json:"vitals,omitempty"`
}

func (r *WalkInRequest) Validate() error {
	r.DonationCenter = strings.TrimSpace(r.DonationCenter)
	if r.DonationCenter == "" {
		return dErrors.New(dErrors.CodeBadRequest, "donation_center is required")
	}
	if r.Units < donation.MinUnitsPerDonation || r.Units > donation.MaxUnitsPerDonation {
		return dErrors.Newf(dErrors.CodeBadRequest, "units must be between %d and %d",
			donation.MinUnitsPerDonation, donation.MaxUnitsPerDonation)
	}
	return nil
}

// ScheduleRequest is the HTTP request body for POST /donations/schedule.
type ScheduleRequest struct {
	DonationCenter string  `json:"donation_center"`
	DonationDate   string  `json:"donation_date"`
	ScheduledTime  *string `json:"scheduled_time,omitempty"`

	parsedDate time.Time
}

func (r *ScheduleRequest) Validate() error {
	r.DonationCenter = strings.TrimSpace(r.DonationCenter)
	if r.DonationCenter == "" {
		return dErrors.New(dErrors.CodeBadRequest, "donation_center is required")
	}
	date, err := time.Parse(dateLayout, r.DonationDate)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "donation_date must be formatted YYYY-MM-DD")
	}
	r.parsedDate = date
	return nil
}

// ParsedDate returns the validated donation date.
func (r *ScheduleRequest) ParsedDate() time.Time {
	return r.parsedDate
}

// PastRequest is the HTTP request body for POST /donations/past.
type PastRequest struct {
	DonationCenter string `json:"donation_center"`
	DonationDate   string `json:"donation_date"`
	Units          int    `json:"units"`

	parsedDate time.Time
}

func (r *PastRequest) Validate() error {
	r.DonationCenter = strings.TrimSpace(r.DonationCenter)
	if r.DonationCenter == "" {
		return dErrors.New(dErrors.CodeBadRequest, "donation_center is required")
	}
	if r.Units < donation.MinUnitsPerDonation || r.Units > donation.MaxUnitsPerDonation {
		return dErrors.Newf(dErrors.CodeBadRequest, "units must be between %d and %d",
			donation.MinUnitsPerDonation, donation.MaxUnitsPerDonation)
	}
	date, err := time.Parse(dateLayout, r.DonationDate)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "donation_date must be formatted YYYY-MM-DD")
	}
	r.parsedDate = date
	return nil
}

// ParsedDate returns the validated donation date.
func (r *PastRequest) ParsedDate() time.Time {
	return r.parsedDate
}

// DecisionRequest is the HTTP request body for POST /admin/donations/{id}/decision.
type DecisionRequest struct {
	Action   string `json:"action"`
	Notes    string `json:"notes"`
	Override bool   `json:"override"`
}

func (r *DecisionRequest) Validate() error {
	r.Action = strings.TrimSpace(r.Action)
	if r.Action == "" {
		return dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// ParsedAction returns the decision action; the service rejects unknown ones.
func (r *DecisionRequest) ParsedAction() donation.DecisionAction {
	return donation.DecisionAction(r.Action)
}
