package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// Extractor turns raw receipt content into a normalized Receipt via an
// OpenAI-compatible chat model. Scanned receipts go through the vision
// path, digital ones through plain text.
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewExtractor creates an extractor against the given endpoint. An
// empty baseURL uses the default OpenAI endpoint.
func NewExtractor(apiKey, baseURL, model string, temperature float32, logger *zap.Logger) *Extractor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Extractor{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Extract runs field extraction over one document and returns the
// normalized receipt. Category and identity come from the scan
// context (folder convention), not from the model.
func (e *Extractor) Extract(ctx context.Context, content *PDFContent, filename string, category models.Category, empID, empName string) (*models.Receipt, error) {
	var messages []openai.ChatCompletionMessage
	if content.HasTextLayer() {
		messages = e.textMessages(content.Text)
	} else if len(content.Pages) > 0 {
		messages = e.visionMessages(content.Pages)
	} else {
		return nil, fmt.Errorf("document %s has neither text nor renderable pages", filename)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from extraction model")
	}

	raw, err := SafeExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		e.logger.Error("Failed to recover JSON from model output",
			zap.String("filename", filename),
			zap.Error(err))
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	var receipt models.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt fields: %w", err)
	}

	receipt.Filename = filename
	receipt.Category = models.NormalizeCategory(category)
	receipt.EmployeeID = empID
	receipt.EmployeeName = empName
	if receipt.ID == "" {
		receipt.ID = strings.TrimSuffix(filename, ".pdf")
	}
	if receipt.Currency == "" {
		receipt.Currency = models.DefaultCurrency
	}

	e.logger.Info("Receipt extracted",
		zap.String("filename", filename),
		zap.String("category", string(receipt.Category)),
		zap.String("date", receipt.Date))

	return &receipt, nil
}

func (e *Extractor) textMessages(text string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildExtractionPrompt(text)},
	}
}

func (e *Extractor) visionMessages(pages [][]byte) []openai.ChatCompletionMessage {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: buildExtractionPrompt("(see attached receipt images)"),
	}}
	for _, page := range pages {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(page)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
		{Role: openai.ChatMessageRoleUser, MultiContent: parts},
	}
}

const extractionSystemPrompt = "You are an expert in cleaning noisy OCR output from Indian expense receipts " +
	"(Uber, Ola, Rapido cab bills, restaurant bills, fuel bills). Return ONLY one valid JSON object."

func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`Extract the receipt fields from the content below.

Recurring OCR noise to correct:
- The currency symbol is often misread as a leading "3" or "2" on amounts (e.g. 3210 means 210).
- Stray braces and merged lines appear around addresses.

Return a JSON object with exactly these keys (null for anything absent):
{
  "id": string or null,
  "rider_name": string or null,
  "date": "YYYY-MM-DD" or null,
  "amount": string or null,
  "currency": "INR",
  "pickup_address": string or null,
  "drop_address": string or null
}

CONTENT:
%s`, text)
}

var (
	trailingObjComma = regexp.MustCompile(`,\s*}`)
	trailingArrComma = regexp.MustCompile(`,\s*]`)
)

// SafeExtractJSON recovers the JSON object embedded in a model reply.
// Models occasionally wrap output in markdown fences, emit trailing
// commas, or use single quotes; all of those are repaired before
// giving up.
func SafeExtractJSON(output string) (json.RawMessage, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in model output")
	}

	block := output[start : end+1]
	block = strings.ReplaceAll(block, "```json", "")
	block = strings.ReplaceAll(block, "```", "")
	block = strings.TrimSpace(block)

	if strings.Contains(block, "'") && !strings.Contains(block, `"`) {
		block = strings.ReplaceAll(block, "'", `"`)
	}

	block = trailingObjComma.ReplaceAllString(block, "}")
	block = trailingArrComma.ReplaceAllString(block, "]")

	if !json.Valid([]byte(block)) {
		return nil, fmt.Errorf("model output is not valid JSON after cleanup")
	}
	return json.RawMessage(block), nil
}
