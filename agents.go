package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	providerAnthropic = "anthropic"
	providerOpenAI    = "openai"
)

const generatorSystemPrompt = "You write Chinese social media content. Always answer with exactly one fenced ```json block that follows the requested schema."

// Generator turns a prompt into completion text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator creates the generator configured in settings
func NewGenerator(agent AgentSettings, apiKey string) (Generator, error) {
	switch agent.Provider {
	case providerAnthropic, "":
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return NewAnthropicGenerator(apiKey, agent)
	case providerOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIGenerator(apiKey, agent)
	default:
		return nil, fmt.Errorf("unknown agent provider: %q", agent.Provider)
	}
}

// AnthropicGenerator calls the Anthropic messages API through llmkit
type AnthropicGenerator struct {
	apiKey   string
	settings AgentSettings
}

// NewAnthropicGenerator creates a generator backed by Anthropic
func NewAnthropicGenerator(apiKey string, settings AgentSettings) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required: use --api-key flag or ANTHROPIC_API_KEY environment variable")
	}
	return &AnthropicGenerator{apiKey: apiKey, settings: settings}, nil
}

// Generate sends the prompt as a single user message
func (g *AnthropicGenerator) Generate(_ context.Context, prompt string) (string, error) {
	log.Printf("→ Generating with %s...", g.settings.Model)
	settings := types.RequestSettings{
		Model:       g.settings.Model,
		MaxTokens:   g.settings.MaxTokens,
		Temperature: g.settings.Temperature,
	}
	response, err := anthropic.PromptWithSettings(generatorSystemPrompt, prompt, "", g.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("anthropic generation failed: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var sb strings.Builder
	for _, block := range response.Content {
		sb.WriteString(block.Text)
	}
	log.Printf("✓ Generation completed")
	return sb.String(), nil
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint
type OpenAIGenerator struct {
	client   openai.Client
	settings AgentSettings
}

// NewOpenAIGenerator creates a generator backed by OpenAI
func NewOpenAIGenerator(apiKey string, settings AgentSettings, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required: use --api-key flag or OPENAI_API_KEY environment variable")
	}
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if settings.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(settings.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIGenerator{
		client:   openai.NewClient(clientOpts...),
		settings: settings,
	}, nil
}

// Generate sends the prompt as a single user message
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	log.Printf("→ Generating with %s...", g.settings.Model)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.settings.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(generatorSystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.settings.Temperature),
	}
	if g.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.settings.MaxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no content in response")
	}

	log.Printf("✓ Generation completed")
	return completion.Choices[0].Message.Content, nil
}
