package aggregator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/clausewise/contract-analyzer/pkg/models"
)

// ErrEmptyAnalysis is returned when there were no clauses to aggregate.
// Zero flagged clauses from a segmented document is a success, not this
// error.
var ErrEmptyAnalysis = errors.New("no clauses to aggregate")

// Config holds the aggregation weighting. The overall score is biased
// toward the worst clause rather than a plain average.
type Config struct {
	MaxWeight  float64
	MeanWeight float64
	TopDrivers int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxWeight:  0.6,
		MeanWeight: 0.4,
		TopDrivers: 3,
	}
}

// Aggregator combines classified clause outcomes into one ContractAnalysis
type Aggregator struct {
	config Config
}

// New creates an Aggregator with the given config
func New(config Config) *Aggregator {
	if config.MaxWeight == 0 && config.MeanWeight == 0 {
		config = DefaultConfig()
	}
	if config.TopDrivers <= 0 {
		config.TopDrivers = DefaultConfig().TopDrivers
	}
	return &Aggregator{config: config}
}

// Aggregate builds the document-level analysis. clauseCount is the number
// of clauses the segmenter produced; flagged and positives are the
// per-clause classification outcomes. The overall risk level is always
// derived from the overall score, never set independently.
func (a *Aggregator) Aggregate(contractType models.ContractType, clauseCount int, flagged []models.FlaggedClause, positives []string) (*models.ContractAnalysis, error) {
	if clauseCount == 0 {
		return nil, ErrEmptyAnalysis
	}

	if contractType == "" {
		contractType = models.ContractTypeOther
	}

	// Callers may deliver clauses in completion order; the document order
	// is the contract
	ordered := make([]models.FlaggedClause, len(flagged))
	copy(ordered, flagged)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	score := a.overallScore(ordered)

	return &models.ContractAnalysis{
		ContractType:          contractType,
		OverallRisk:           models.RiskLevelForScore(score),
		RiskScore:             score,
		Summary:               a.summarize(score, ordered),
		FlaggedClauses:        ordered,
		PositivePoints:        positives,
		NegotiationPriorities: negotiationPriorities(ordered),
	}, nil
}

// overallScore computes round(maxWeight*max + meanWeight*mean), clamped
// to [0,100]
func (a *Aggregator) overallScore(flagged []models.FlaggedClause) int {
	if len(flagged) == 0 {
		return 0
	}

	maxScore := 0
	sum := 0
	for _, fc := range flagged {
		if fc.RiskScore > maxScore {
			maxScore = fc.RiskScore
		}
		sum += fc.RiskScore
	}
	mean := float64(sum) / float64(len(flagged))

	score := int(math.Round(a.config.MaxWeight*float64(maxScore) + a.config.MeanWeight*mean))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// summarize names the dominant risk drivers: the types of the top-scoring
// flagged clauses
func (a *Aggregator) summarize(score int, flagged []models.FlaggedClause) string {
	if len(flagged) == 0 {
		return "No risky clauses identified. The agreement looks balanced as written."
	}

	byScore := make([]models.FlaggedClause, len(flagged))
	copy(byScore, flagged)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].RiskScore > byScore[j].RiskScore
	})

	seen := make(map[models.ClauseType]bool)
	var drivers []string
	for _, fc := range byScore {
		if seen[fc.ClauseType] {
			continue
		}
		seen[fc.ClauseType] = true
		drivers = append(drivers, strings.ReplaceAll(string(fc.ClauseType), "_", " "))
		if len(drivers) == a.config.TopDrivers {
			break
		}
	}

	return fmt.Sprintf("%s overall risk (%d/100) across %d flagged clause(s). Main concerns: %s.",
		capitalize(string(models.RiskLevelForScore(score))),
		score, len(flagged), strings.Join(drivers, ", "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// negotiationPriorities orders remediation suggestions by descending
// clause risk score
func negotiationPriorities(flagged []models.FlaggedClause) []string {
	byScore := make([]models.FlaggedClause, len(flagged))
	copy(byScore, flagged)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].RiskScore > byScore[j].RiskScore
	})

	priorities := make([]string, len(byScore))
	for i, fc := range byScore {
		priorities[i] = fmt.Sprintf("%s (risk %d/100): %s",
			strings.ReplaceAll(string(fc.ClauseType), "_", " "), fc.RiskScore, fc.Suggestion)
	}
	return priorities
}
