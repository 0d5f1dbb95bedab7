package models

// ContractType identifies the kind of agreement being analyzed
type ContractType string

const (
	ContractTypeNDA        ContractType = "NDA"
	ContractTypeService    ContractType = "Service Agreement"
	ContractTypeEmployment ContractType = "Employment Contract"
	ContractTypeFreelance  ContractType = "Freelance Agreement"
	ContractTypeOther      ContractType = "Other"
)

// ClauseType classifies a clause by subject matter
type ClauseType string

const (
	ClauseTermination     ClauseType = "termination"
	ClausePayment         ClauseType = "payment"
	ClauseLiability       ClauseType = "liability"
	ClauseIPRights        ClauseType = "ip_rights"
	ClauseConfidentiality ClauseType = "confidentiality"
	ClauseNonCompete      ClauseType = "non_compete"
	ClauseJurisdiction    ClauseType = "jurisdiction"
	ClauseOther           ClauseType = "other"
)

// Valid reports whether t is a member of the closed clause type enumeration
func (t ClauseType) Valid() bool {
	switch t {
	case ClauseTermination, ClausePayment, ClauseLiability, ClauseIPRights,
		ClauseConfidentiality, ClauseNonCompete, ClauseJurisdiction, ClauseOther:
		return true
	}
	return false
}

// RiskLevel is a coarse three-bucket view of a risk score
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Score thresholds mapping a 0-100 risk score to a RiskLevel
const (
	HighRiskThreshold   = 70
	MediumRiskThreshold = 40
)

// RiskLevelForScore derives the risk level from a 0-100 score.
// The score is authoritative: any level stated elsewhere must agree with
// this derivation.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Clause is a contiguous span of contract text treated as one negotiable
// unit. Position is the 0-based offset of the clause's first character in
// the source document. Immutable once segmented.
type Clause struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// FlaggedClause is a clause judged risk-relevant and annotated with risk
// metadata. RiskLevel is always the threshold derivation of RiskScore.
type FlaggedClause struct {
	ClauseText  string     `json:"clause_text"`
	ClauseType  ClauseType `json:"clause_type"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	RiskScore   int        `json:"risk_score"`
	Explanation string     `json:"explanation"`
	Suggestion  string     `json:"suggestion"`
	Position    int        `json:"position"`
}

// ContractAnalysis is the aggregated risk assessment for one document.
// FlaggedClauses is ordered by ascending Position.
type ContractAnalysis struct {
	ContractType          ContractType    `json:"contract_type"`
	OverallRisk           RiskLevel       `json:"overall_risk"`
	RiskScore             int             `json:"risk_score"`
	Summary               string          `json:"summary"`
	FlaggedClauses        []FlaggedClause `json:"flagged_clauses"`
	PositivePoints        []string        `json:"positive_points"`
	NegotiationPriorities []string        `json:"negotiation_priorities"`
}

// SimilarClause is a historical corpus clause returned by a similarity
// query, with its cosine similarity to the query vector
type SimilarClause struct {
	ID          string     `json:"id"`
	ClauseText  string     `json:"clause_text"`
	ClauseType  ClauseType `json:"clause_type"`
	IsFavorable bool       `json:"is_favorable"`
	Explanation string     `json:"explanation"`
	Similarity  float64    `json:"similarity"`
}
