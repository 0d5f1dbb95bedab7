package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clausewise/contract-analyzer/pkg/models"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "anthropic/claude-3.5-haiku"
	defaultTimeout = 45 * time.Second

	maxDetectionChars = 4000
)

// Client judges contract clauses via an OpenAI-compatible chat completion
// API. It implements LanguageModel.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClientConfig holds client configuration
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultClientConfig returns default configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: defaultBaseURL,
		Model:   defaultModel,
		Timeout: defaultTimeout,
	}
}

// NewClient creates a new language model client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ClassifyClause asks the model to judge a single clause
func (c *Client) ClassifyClause(ctx context.Context, clauseText string, docCtx Context) (*Judgement, error) {
	response, err := c.complete(ctx, buildClausePrompt(clauseText, docCtx))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	var j Judgement
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &j); err != nil {
		return nil, fmt.Errorf("parse judgement: %w", err)
	}

	return &j, nil
}

// DetectContractType asks the model what kind of agreement the document is
func (c *Client) DetectContractType(ctx context.Context, text string) (models.ContractType, error) {
	if len(text) > maxDetectionChars {
		text = truncateBytes(text, maxDetectionChars)
	}

	response, err := c.complete(ctx, buildDetectionPrompt(text))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	return models.ContractType(strings.TrimSpace(stripCodeFence(response))), nil
}

func buildClausePrompt(clauseText string, docCtx Context) string {
	var sb strings.Builder

	sb.WriteString("You are reviewing a clause from a ")
	if docCtx.ContractType != "" {
		sb.WriteString(string(docCtx.ContractType))
	} else {
		sb.WriteString("service")
	}
	sb.WriteString(" contract on behalf of the freelancer/contractor.\n\n")

	sb.WriteString(fmt.Sprintf("Clause: \"%s\"\n\n", clauseText))

	if len(docCtx.Precedents) > 0 {
		sb.WriteString("Similar clauses from previously reviewed contracts:\n")
		for _, p := range docCtx.Precedents {
			verdict := "risky"
			if p.IsFavorable {
				verdict = "favorable"
			}
			sb.WriteString(fmt.Sprintf("- [%s, %s] %s\n", p.ClauseType, verdict, p.Explanation))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Respond with JSON only:
{
  "relevant": true|false,
  "favorable": true|false,
  "clause_type": "termination|payment|liability|ip_rights|confidentiality|non_compete|jurisdiction|other",
  "risk_level": "high|medium|low",
  "risk_score": 0-100,
  "explanation": "why this clause is risky or favorable",
  "suggestion": "concrete rewording to propose"
}

Set "relevant": false for pure boilerplate (definitions, headings, notices).
Set "favorable": true when the clause already protects the contractor.`)

	return sb.String()
}

func buildDetectionPrompt(text string) string {
	return fmt.Sprintf(`Classify this contract as exactly one of:
NDA, Service Agreement, Employment Contract, Freelance Agreement, Other

Contract text:
%s

Respond with the category name only.`, text)
}

type chatRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		MaxTokens:   600,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return cr.Choices[0].Message.Content, nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stripCodeFence removes a surrounding markdown code fence, which models
// add despite being told not to
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
