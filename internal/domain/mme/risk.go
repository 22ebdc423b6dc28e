package mme

// RiskLevel is the tier derived from total daily MME
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Risk thresholds in MME/day. Each is the inclusive lower bound of its band.
const (
	CautionThreshold   = 50.0
	HighRiskThreshold  = 90.0
	DangerousThreshold = 120.0
)

var (
	lowWarnings = []string{
		"Total MME is within normal range.",
	}
	moderateWarnings = []string{
		"CAUTION: Total MME is 50 or greater. Use extra precautions.",
		"Consider non-opioid alternatives.",
		"Discuss the risks and benefits of opioid therapy with the patient.",
		"Monitor the patient more frequently.",
	}
	highWarnings = []string{
		"HIGH RISK: Total MME is 90 or greater. Avoid or carefully justify this dose.",
		"Consider non-opioid and multimodal alternatives.",
		"Schedule more frequent follow-up visits.",
		"Prescribe naloxone.",
		"Screen for opioid use disorder.",
	}
	criticalWarnings = []string{
		"DANGER: Total MME is 120 or greater. Overdose risk is significantly increased.",
		"Review the regimen immediately.",
		"Consider tapering or discontinuing opioid therapy.",
		"Prescribe naloxone immediately.",
		"Refer to a pain management specialist.",
		"Screen for opioid use disorder.",
	}
)

// ClassifyRisk maps a total daily MME to its risk level and advisory
// messages. The returned slice is a fresh copy.
func ClassifyRisk(totalMME float64) (RiskLevel, []string) {
	var (
		level    RiskLevel
		warnings []string
	)
	switch {
	case totalMME >= DangerousThreshold:
		level, warnings = RiskCritical, criticalWarnings
	case totalMME >= HighRiskThreshold:
		level, warnings = RiskHigh, highWarnings
	case totalMME >= CautionThreshold:
		level, warnings = RiskModerate, moderateWarnings
	default:
		level, warnings = RiskLow, lowWarnings
	}
	return level, append([]string(nil), warnings...)
}
