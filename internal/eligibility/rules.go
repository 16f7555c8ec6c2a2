package eligibility

import (
	"fmt"
	"time"
)

// Score applies the additive risk model to a set of vitals. This is pure
// domain logic - no I/O, no side effects. Unknown (nil) values skip their
// factor entirely; the score starts at zero and is capped at 100.
func Score(v Vitals) Assessment {
	var a Assessment

	if v.Age != nil {
		switch age := *v.Age; {
		case age < MinDonorAge || age > MaxDonorAge:
			a.add(30, RiskFlag{
				Type:     "age",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Age %d is outside the donor range of %d-%d", age, MinDonorAge, MaxDonorAge),
			})
		case age <= 21 || age >= 60:
			a.add(15, RiskFlag{
				Type:     "age",
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("Age %d is at the edge of the donor range", age),
			})
		}
	}

	if v.WeightKG != nil {
		switch w := *v.WeightKG; {
		case w < 50:
			a.add(25, RiskFlag{
				Type:     "weight",
				Severity: SeverityHigh,
				Message:  "Weight below the 50kg minimum for safe donation",
			})
		case w <= 55:
			a.add(10, RiskFlag{
				Type:     "weight",
				Severity: SeverityMedium,
				Message:  "Weight in the 50-55kg caution range",
			})
		}
	}

	if v.BloodPressureSystolic != nil && v.BloodPressureDiastolic != nil {
		sys, dia := *v.BloodPressureSystolic, *v.BloodPressureDiastolic
		if sys > 140 || sys < 90 || dia > 90 || dia < 60 {
			a.add(20, RiskFlag{
				Type:     "blood_pressure",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Blood pressure %d/%d is outside the acceptable range", sys, dia),
			})
		}
	}

	if v.Hemoglobin != nil {
		switch hb := *v.Hemoglobin; {
		case hb < 12.5:
			a.add(25, RiskFlag{
				Type:     "hemoglobin",
				Severity: SeverityHigh,
				Message:  "Hemoglobin below the 12.5 g/dL donation minimum",
			})
		case hb <= 13.0:
			a.add(10, RiskFlag{
				Type:     "hemoglobin",
				Severity: SeverityMedium,
				Message:  "Hemoglobin in the 12.5-13.0 g/dL caution range",
			})
		}
	}

	if v.HeartRate != nil {
		if hr := *v.HeartRate; hr < 50 || hr > 100 {
			a.add(15, RiskFlag{
				Type:     "heart_rate",
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("Resting heart rate %d bpm is outside 50-100", hr),
			})
		}
	}

	if v.TemperatureC != nil {
		if t := *v.TemperatureC; t > 37.5 || t < 36.0 {
			a.add(20, RiskFlag{
				Type:     "temperature",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Body temperature %.1f°C is outside 36.0-37.5", t),
			})
		}
	}

	if v.RecentIllness {
		a.add(15, RiskFlag{
			Type:     "recent_illness",
			Severity: SeverityMedium,
			Message:  "Recent illness reported",
		})
	}

	if v.ChronicConditions {
		a.add(20, RiskFlag{
			Type:     "chronic_conditions",
			Severity: SeverityHigh,
			Message:  "Chronic health condition reported",
		})
	}

	if v.CurrentMedications {
		a.add(10, RiskFlag{
			Type:     "medications",
			Severity: SeverityMedium,
			Message:  "Currently taking medication",
		})
	}

	if v.Allergies {
		a.add(5, RiskFlag{
			Type:     "allergies",
			Severity: SeverityMedium,
			Message:  "Allergies reported",
		})
	}

	// First-time donors (nil) skip the frequency penalty entirely.
	if v.DaysSinceLastDonation != nil && *v.DaysSinceLastDonation < BufferDays {
		a.add(30, RiskFlag{
			Type:     "donation_frequency",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("Only %d days since last donation; %d required", *v.DaysSinceLastDonation, BufferDays),
		})
	}

	if a.RiskScore > 100 {
		a.RiskScore = 100
	}
	return a
}

func (a *Assessment) add(penalty int, flag RiskFlag) {
	a.RiskScore += penalty
	a.Flags = append(a.Flags, flag)
}

// NextEligibleDate returns the first day the donor may donate again after a
// completed, approved donation on last.
func NextEligibleDate(last time.Time) time.Time {
	return last.AddDate(0, 0, BufferDays)
}

// DaysSince returns whole elapsed days between last and now.
func DaysSince(last, now time.Time) int {
	return int(now.Sub(last).Hours() / 24)
}

// DaysRemaining returns how many days of the buffer period are left, never
// negative.
func DaysRemaining(last, now time.Time) int {
	remaining := BufferDays - DaysSince(last, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
