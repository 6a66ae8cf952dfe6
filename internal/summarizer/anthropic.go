package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures the Claude-backed summarizer.
type AnthropicConfig struct {
	APIKey    string        `yaml:"apiKey"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"maxTokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AnthropicSummarizer implements Summarizer using the Anthropic API.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicSummarizer constructs a Claude-backed summarizer. The API key
// falls back to the ANTHROPIC_API_KEY environment variable when empty.
func NewAnthropicSummarizer(cfg AnthropicConfig) *AnthropicSummarizer {
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_0)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	var client anthropic.Client
	if cfg.APIKey != "" {
		client = anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	} else {
		client = anthropic.NewClient()
	}

	return &AnthropicSummarizer{
		client:    client,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
	}
}

const systemPrompt = `You are an SRE and cloud ops expert performing root cause analysis.

You are given:
1) Metrics analysis output (already summarized).
2) Log analysis summary.

Your job:
- Infer the most likely root cause or small set of root causes.
- Identify impacted services or components.
- Propose concrete next actions for on call.

Return JSON strictly in this structure:
{
  "incident_summary": "short paragraph",
  "overall_severity": "ok | warning | high | critical",
  "likely_root_causes": ["..."],
  "impacted_components": ["..."],
  "recommended_actions": ["..."],
  "llm_reasoning": "brief explanation of how you arrived at this"
}`

// Summarize calls the model with the pre-trimmed context and note. The call
// is bounded by the configured timeout; errors surface to the caller, which
// degrades to the deterministic fallback shape.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, compactContext []byte, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString("---------------- METRICS ANALYSIS OUTPUT (COMPACT) ----------------\n")
	prompt.Write(compactContext)
	prompt.WriteString("\n\n---------------- LOG ANALYSIS SUMMARY -------------------\n")
	prompt.WriteString(text)

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.String())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}
