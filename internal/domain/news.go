package domain

// RiskLevel grades an opportunity as assessed by the classifier.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// ParseRiskLevel maps free-form classifier output to a known level.
func ParseRiskLevel(value string) RiskLevel {
	switch RiskLevel(value) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(value)
	default:
		return RiskUnknown
	}
}

// Verdict is the structured classifier assessment for one item.
type Verdict struct {
	OpportunityType string
	Risk            RiskLevel
	Explanation     string
}

// NewsItem is one candidate article flowing through a workflow run.
type NewsItem struct {
	Source        string
	Title         string
	Link          string
	Summary       string
	ImageURL      string
	Published     string
	IsOpportunity bool
	Analysis      *Verdict
}
