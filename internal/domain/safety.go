package domain

// RiskLabel is the discrete risk band derived from a safety score.
type RiskLabel string

const (
	RiskSafe     RiskLabel = "Safe"
	RiskModerate RiskLabel = "Moderate"
	RiskCaution  RiskLabel = "Caution"
	RiskHigh     RiskLabel = "High Risk"
)

const (
	safetyBase = 85.0

	crimePenaltyPerEvent = 3.0
	crimePenaltyCap      = 60.0
	policeBonusPerSite   = 4.0
	policeBonusCap       = 15.0
	hospitalBonusPerSite = 2.0
	hospitalBonusCap     = 10.0

	remotePenalty            = 5.0
	noPoliceHighCrimePenalty = 15.0
	noPolicePenalty          = 5.0
	noHospitalPenalty        = 5.0
	highCrimeEvents          = 3

	minSafetyScore = 10.0
	maxSafetyScore = 100.0
)

// riskBands maps the lowest score of each band to its label, highest first.
var riskBands = []struct {
	min   int
	label RiskLabel
}{
	{80, RiskSafe},
	{60, RiskModerate},
	{40, RiskCaution},
}

// SafetyAssessment is a bounded safety score with its risk label.
type SafetyAssessment struct {
	Score int       `json:"score"`
	Risk  RiskLabel `json:"risk"`
}

// ScoreSafety combines protective infrastructure counts with the number of
// unique crime events into a score in [10, 100].
//
// An area with no police, no hospitals and no reported crime is treated as
// remote and only loses 5 points. Otherwise missing police costs 15 points
// when more than 3 crime events were found (5 otherwise) and missing
// hospitals cost 5. Negative counts are treated as zero.
func ScoreSafety(police, hospitals, crimeEvents int) SafetyAssessment {
	police = max(police, 0)
	hospitals = max(hospitals, 0)
	crimeEvents = max(crimeEvents, 0)

	score := safetyBase
	score -= min(float64(crimeEvents)*crimePenaltyPerEvent, crimePenaltyCap)
	score += min(float64(police)*policeBonusPerSite, policeBonusCap)
	score += min(float64(hospitals)*hospitalBonusPerSite, hospitalBonusCap)

	if police == 0 && hospitals == 0 && crimeEvents == 0 {
		score -= remotePenalty
	} else {
		if police == 0 {
			if crimeEvents > highCrimeEvents {
				score -= noPoliceHighCrimePenalty
			} else {
				score -= noPolicePenalty
			}
		}
		if hospitals == 0 {
			score -= noHospitalPenalty
		}
	}

	score = max(minSafetyScore, min(score, maxSafetyScore))
	final := int(score)

	return SafetyAssessment{Score: final, Risk: riskLabel(final)}
}

func riskLabel(score int) RiskLabel {
	for _, b := range riskBands {
		if score >= b.min {
			return b.label
		}
	}
	return RiskHigh
}
