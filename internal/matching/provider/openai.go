package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bell24h-workers/internal/models"

	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

var ErrNoJSONObject = errors.New("reply contains no JSON object")

const systemPrompt = "You match B2B suppliers to a buyer's request for quotation. " +
	"Reply with a JSON object of the form {\"matches\":[{\"supplierId\":\"<id>\",\"score\":<0-100>}]} " +
	"ordered from best to worst. Only use supplier ids from the list. Omit suppliers that do not fit."

// OpenAI asks a chat-completion model to rank the candidates.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the provider. baseURL may be empty for the public API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *OpenAI) Name() string { return KindOpenAI }

func (p *OpenAI) Match(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) ([]models.ScoredCandidate, error) {
	prompt, err := buildPrompt(req, candidates)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	parsed, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return resolve(parsed.Matches, candidates), nil
}

func buildPrompt(req models.MatchRequest, candidates []models.Candidate) (string, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	candJSON, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("Request:\n")
	b.Write(reqJSON)
	b.WriteString("\n\nSuppliers:\n")
	b.Write(candJSON)
	return b.String(), nil
}

// parseReply pulls the outermost JSON object out of the model reply, which
// may be wrapped in prose or a code fence.
func parseReply(content string) (matchResponse, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return matchResponse{}, ErrNoJSONObject
	}

	var parsed matchResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return matchResponse{}, fmt.Errorf("failed to parse model reply: %w", err)
	}
	return parsed, nil
}
