package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clausewise/contract-analyzer/pkg/models"
)

// ErrClassification marks a clause judgement that failed upstream or came
// back structurally invalid
var ErrClassification = errors.New("classification failed")

// Judgement is the raw verdict a language model returns for one clause.
// It is untrusted input: the Classifier validates every field before a
// FlaggedClause is built from it.
type Judgement struct {
	Relevant    bool   `json:"relevant"`
	Favorable   bool   `json:"favorable"`
	ClauseType  string `json:"clause_type"`
	RiskLevel   string `json:"risk_level"`
	RiskScore   int    `json:"risk_score"`
	Explanation string `json:"explanation"`
	Suggestion  string `json:"suggestion"`
}

// Context carries document-level hints alongside a clause
type Context struct {
	ContractType models.ContractType
	Filename     string
	// Precedents are similar clauses from the historical corpus, advisory
	// input only
	Precedents []models.SimilarClause
}

// LanguageModel is the reasoning capability the classifier delegates to
type LanguageModel interface {
	ClassifyClause(ctx context.Context, clauseText string, docCtx Context) (*Judgement, error)
	DetectContractType(ctx context.Context, text string) (models.ContractType, error)
}

// Result is the outcome of classifying a single clause. Exactly one of the
// fields is set for a risk-relevant clause; both are empty when the clause
// is boilerplate.
type Result struct {
	Flagged  *models.FlaggedClause
	Positive string
}

// Classifier turns raw clause spans into flagged clauses by delegating
// reasoning to a language model and validating what comes back
type Classifier struct {
	model LanguageModel
}

// New creates a Classifier backed by the given language model
func New(model LanguageModel) *Classifier {
	return &Classifier{model: model}
}

// Classify judges one clause. Boilerplate clauses yield an empty Result,
// not an error. The model's stated risk level is never trusted: the level
// on the returned FlaggedClause is always derived from the score.
func (c *Classifier) Classify(ctx context.Context, clause models.Clause, docCtx Context) (Result, error) {
	j, err := c.model.ClassifyClause(ctx, clause.Text, docCtx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	if j == nil {
		return Result{}, fmt.Errorf("%w: model returned no judgement", ErrClassification)
	}

	if !j.Relevant {
		return Result{}, nil
	}

	if j.Favorable {
		point := strings.TrimSpace(j.Explanation)
		if point == "" {
			point = clause.Text
		}
		return Result{Positive: point}, nil
	}

	if err := validateJudgement(j); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	return Result{Flagged: &models.FlaggedClause{
		ClauseText:  clause.Text,
		ClauseType:  models.ClauseType(j.ClauseType),
		RiskLevel:   models.RiskLevelForScore(j.RiskScore),
		RiskScore:   j.RiskScore,
		Explanation: j.Explanation,
		Suggestion:  j.Suggestion,
		Position:    clause.Position,
	}}, nil
}

// DetectContractType asks the model what kind of agreement the document
// is. Unknown answers degrade to ContractTypeOther.
func (c *Classifier) DetectContractType(ctx context.Context, text string) (models.ContractType, error) {
	ct, err := c.model.DetectContractType(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}

	switch ct {
	case models.ContractTypeNDA, models.ContractTypeService,
		models.ContractTypeEmployment, models.ContractTypeFreelance:
		return ct, nil
	default:
		return models.ContractTypeOther, nil
	}
}

func validateJudgement(j *Judgement) error {
	if !models.ClauseType(j.ClauseType).Valid() {
		return fmt.Errorf("clause type %q not in enumeration", j.ClauseType)
	}
	if j.RiskScore < 0 || j.RiskScore > 100 {
		return fmt.Errorf("risk score %d outside 0-100", j.RiskScore)
	}
	if strings.TrimSpace(j.Explanation) == "" {
		return errors.New("missing explanation")
	}
	if strings.TrimSpace(j.Suggestion) == "" {
		return errors.New("missing suggestion")
	}
	return nil
}
