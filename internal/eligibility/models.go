package eligibility

import "time"

// Donation safety constants. BufferDays is the mandatory interval between
// completed, approved donations. RiskThreshold is the score above which an
// administrator cannot approve without an explicit override.
const (
	BufferDays    = 56
	RiskThreshold = 60
	MinDonorAge   = 18
	MaxDonorAge   = 65
)

// Vitals captures the health attributes submitted with a donation. Numeric
// fields are pointers: nil means the value was missing or unparseable, and
// the corresponding factor is skipped rather than treated as zero.
type Vitals struct {
	Age                    *int     `json:"age"`
	WeightKG               *float64 `json:"weight_kg"`
	BloodPressureSystolic  *int     `json:"bp_systolic"`
	BloodPressureDiastolic *int     `json:"bp_diastolic"`
	Hemoglobin             *float64 `json:"hemoglobin"`
	HeartRate              *int     `json:"heart_rate"`
	TemperatureC           *float64 `json:"temperature_c"`
	RecentIllness          bool     `json:"recent_illness"`
	ChronicConditions      bool     `json:"chronic_conditions"`
	CurrentMedications     bool     `json:"current_medications"`
	Allergies              bool     `json:"allergies"`
	DaysSinceLastDonation  *int     `json:"days_since_last_donation"`
}

// Severity ranks a risk flag.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// RiskFlag explains one triggered risk factor in human terms.
type RiskFlag struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Assessment is the outcome of scoring a set of vitals.
type Assessment struct {
	RiskScore int        `json:"risk_score"`
	Flags     []RiskFlag `json:"risk_flags"`
}

// ApprovableWithoutOverride reports whether an administrator may approve a
// donation with this assessment without documenting an override.
func (a Assessment) ApprovableWithoutOverride() bool {
	return a.RiskScore <= RiskThreshold
}

// Eligibility is the answer to "may this donor submit a new donation now".
type Eligibility struct {
	Eligible         bool       `json:"eligible"`
	DaysRemaining    int        `json:"days_remaining"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
	Reason           string     `json:"reason,omitempty"`
}

// DonorProfile is the slice of the external account store this engine needs.
type DonorProfile struct {
	ID         string
	BloodGroup string
	Age        int
	IsActive   bool
	Email      string
	Name       string
}
