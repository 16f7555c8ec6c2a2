package handler

import (
	"hemobank/internal/donation"
	"hemobank/internal/eligibility"
)

// SubmitResponse is the HTTP response for a walk-in submission: the created
// record plus the risk assessment explaining the score.
type SubmitResponse struct {
	Record     donation.DonationRecord `json:"record"`
	RiskScore  int                     `json:"risk_score"`
	RiskFlags  []eligibility.RiskFlag  `json:"risk_flags"`
	NeedsAdmin bool                    `json:"needs_admin_review"`
}

// FromSubmitResult converts a submission result to an HTTP response.
func FromSubmitResult(result *donation.SubmitResult) SubmitResponse {
	return SubmitResponse{
		Record:     *result.Record,
		RiskScore:  result.Assessment.RiskScore,
		RiskFlags:  result.Assessment.Flags,
		NeedsAdmin: !result.Assessment.ApprovableWithoutOverride(),
	}
}

// ListResponse is the HTTP response for donation record listings.
type ListResponse struct {
	Donations []donation.DonationRecord `json:"donations"`
	Count     int                       `json:"count"`
}

// FromRecords converts a record slice to an HTTP response.
func FromRecords(records []donation.DonationRecord) ListResponse {
	if records == nil {
		records = []donation.DonationRecord{}
	}
	return ListResponse{Donations: records, Count: len(records)}
}
