package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// Adjudicator requests the final natural-language policy decision for a
// set of decision groups from the LLM. The payload it builds is the
// contract with the model: the policy document plus the grouped bills,
// nothing else.
type Adjudicator struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewAdjudicator creates an adjudicator against the given endpoint.
func NewAdjudicator(apiKey, baseURL, model string, temperature float32, logger *zap.Logger) *Adjudicator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Adjudicator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// LoadPolicy reads the company expense policy document. The content is
// passed to the model verbatim; the core never interprets it.
func LoadPolicy(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("policy file %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// payload is the wire shape handed to the adjudication model.
type payload struct {
	Policy json.RawMessage        `json:"policy"`
	Groups []models.DecisionGroup `json:"groups"`
}

// BuildPayload assembles the deterministic adjudication request body.
func BuildPayload(policy json.RawMessage, groups []models.DecisionGroup) ([]byte, error) {
	if groups == nil {
		groups = []models.DecisionGroup{}
	}
	body, err := json.MarshalIndent(payload{Policy: policy, Groups: groups}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode adjudication payload: %w", err)
	}
	return body, nil
}

const systemPrompt = `You are a strict company expense auditor. You receive a JSON document
with the company policy and decision groups of employee bills. Each group carries the
employee, category, optional date, the ids of valid and invalid bills, and either a
daily_total or a monthly_total. For every group, decide APPROVE, PARTIAL or REJECT
against the policy limits, state the approved amount, and give a one-sentence reason.
Respond in plain text, one line per group.`

// Decide sends the groups and policy to the model and returns its
// decision text.
func (a *Adjudicator) Decide(ctx context.Context, policy json.RawMessage, groups []models.DecisionGroup) (string, error) {
	body, err := BuildPayload(policy, groups)
	if err != nil {
		return "", err
	}

	a.logger.Info("Requesting policy adjudication", zap.Int("groups", len(groups)))

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(body)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("adjudication request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from adjudication model")
	}

	decision := resp.Choices[0].Message.Content
	a.logger.Info("Adjudication received", zap.Int("length", len(decision)))
	return decision, nil
}
