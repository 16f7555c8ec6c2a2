package inventory

import (
	"math"
	"time"
)

// ShelfLifeDays is the whole-blood shelf life used uniformly for every batch:
// expiry_date = donation_date + ShelfLifeDays.
const ShelfLifeDays = 42

// BloodGroup is one of the eight ABO/Rh combinations.
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists every valid group in a stable order.
var BloodGroups = []BloodGroup{
	APositive, ANegative, BPositive, BNegative,
	ABPositive, ABNegative, OPositive, ONegative,
}

// Valid reports whether g is a known blood group.
func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

// BatchStatus is derived from expiry_date relative to now; it is never
// stored.
type BatchStatus string

const (
	StatusAvailable    BatchStatus = "available"
	StatusExpiringSoon BatchStatus = "expiring_soon"
	StatusCritical     BatchStatus = "critical"
	StatusExpired      BatchStatus = "expired"
)

// Batch is one discrete quantity of blood units of a single group, tied to
// the donation that produced it. Immutable once created except for
// units_available decrements.
type Batch struct {
	ID               string     `db:"id" json:"id"`
	Code             string     `db:"code" json:"code"`
	BloodGroup       BloodGroup `db:"blood_group" json:"blood_group"`
	UnitsAvailable   int        `db:"units_available" json:"units_available"`
	DonationDate     time.Time  `db:"donation_date" json:"donation_date"`
	ExpiryDate       time.Time  `db:"expiry_date" json:"expiry_date"`
	Location         string     `db:"location" json:"location"`
	SourceDonationID string     `db:"source_donation_id" json:"source_donation_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// DaysRemaining returns ceil((expiry - now) / 1 day). Negative once expired.
func (b Batch) DaysRemaining(now time.Time) int {
	return int(math.Ceil(b.ExpiryDate.Sub(now).Hours() / 24))
}

// Status derives the batch status from its expiry date and now. The bands
// meet exactly: expired < 0 <= critical <= 2 < expiring_soon <= 7 < available.
func (b Batch) Status(now time.Time) BatchStatus {
	days := b.DaysRemaining(now)
	switch {
	case days < 0:
		return StatusExpired
	case days <= 2:
		return StatusCritical
	case days <= 7:
		return StatusExpiringSoon
	default:
		return StatusAvailable
	}
}

// Usable reports whether the batch can still be consumed.
func (b Batch) Usable(now time.Time) bool {
	return b.UnitsAvailable > 0 && b.Status(now) != StatusExpired
}

// GroupSummary aggregates the usable supply for one blood group.
type GroupSummary struct {
	BloodGroup    BloodGroup `json:"blood_group"`
	TotalUnits    int        `json:"total_units"`
	BatchCount    int        `json:"batch_count"`
	ExpiringUnits int        `json:"expiring_units"`
}

// Summary is the read-side aggregation view over the per-batch ledger.
type Summary struct {
	Groups      []GroupSummary `json:"groups"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Deduction records one batch decrement performed by a consumption.
type Deduction struct {
	BatchID string `json:"batch_id"`
	Code    string `json:"code"`
	Units   int    `json:"units"`
}
