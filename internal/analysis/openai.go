package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/curatorlabs/curator/internal/registry"
	"github.com/curatorlabs/curator/internal/telemetry"
)

const (
	openaiAPIURL    = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
	promptBodyChars = 2000

	sendAttempts = 3
	sendBackoff  = 500 * time.Millisecond
)

var toneInstructions = map[Tone]string{
	ToneAcademic:     "Use formal academic language with precise terminology and a scholarly tone.",
	ToneCasual:       "Use conversational, easy-to-understand language.",
	ToneProfessional: "Use clear, business-appropriate language.",
	ToneCreative:     "Use engaging, narrative-driven language.",
	ToneDefault:      "Use clear, informative language.",
}

// Message represents a message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the OpenAI chat completions API.
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI chat completions API.
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAI analyzes sources through the chat completions API and falls back to
// the offline analyzer whenever the call or its parsing fails, so callers
// always get a usable result.
type OpenAI struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	attempts    int
	backoff     time.Duration
	httpClient  *http.Client
	fallback    *Offline
	logger      *log.Logger
}

func NewOpenAI(opts Options) *OpenAI {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = openaiAPIURL
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1500
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewLogger("ANALYSIS")
	}
	return &OpenAI{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		attempts:    sendAttempts,
		backoff:     sendBackoff,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		fallback:    NewOffline(opts.Registry, opts.Logger),
		logger:      opts.Logger,
	}
}

func (c *OpenAI) Analyze(ctx context.Context, topic string, sources []registry.Source, typ Type, tone Tone) (Result, error) {
	if len(sources) == 0 {
		return c.fallback.Analyze(ctx, topic, sources, typ, tone)
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt(typ, tone)},
		{Role: "user", Content: userPrompt(topic, typ, sources)},
	}

	raw, err := c.sendRequest(ctx, messages)
	if err != nil {
		return c.degrade(ctx, topic, sources, typ, tone, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		return c.degrade(ctx, topic, sources, typ, tone, fmt.Errorf("failed to parse analysis: %w", err))
	}
	if strings.TrimSpace(result.Summary) == "" {
		return c.degrade(ctx, topic, sources, typ, tone, fmt.Errorf("analysis response had no summary"))
	}

	// The model tends to miscount; the pipeline knows the real number.
	result.SourcesAnalyzed = len(sources)
	return result, nil
}

func (c *OpenAI) degrade(ctx context.Context, topic string, sources []registry.Source, typ Type, tone Tone, cause error) (Result, error) {
	c.logger.Printf("openai analysis failed, using offline analyzer: %v", cause)
	return c.fallback.Analyze(ctx, topic, sources, typ, tone)
}

func systemPrompt(typ Type, tone Tone) string {
	instruction, ok := toneInstructions[tone]
	if !ok {
		instruction = toneInstructions[ToneDefault]
	}
	return fmt.Sprintf(`You are a research analysis assistant that turns collected web sources into structured findings. Your role is to report what the sources actually say about the topic.

RULES:
1. Base every statement on the provided sources, never on outside knowledge
2. Attribute each key point to the source URL it came from
3. Report disagreements between sources as separate viewpoints
4. Name what the sources do not cover as gaps
5. %s
6. %s

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{
  "summary": "overall summary of the findings",
  "key_points": [{"point": "...", "source_url": "...", "source_title": "...", "confidence": 0.8}],
  "trends": [{"trend": "...", "description": "...", "source_urls": ["..."]}],
  "viewpoints": [{"perspective": "...", "supporting_evidence": ["..."], "source_urls": ["..."]}],
  "gaps": ["..."],
  "pros_cons": {"pros": ["..."], "cons": ["..."]},
  "recommendations": ["..."]
}
Do not include any other text or explanation.`, instruction, typeFocus(typ))
}

func typeFocus(typ Type) string {
	switch typ {
	case TypeSummary:
		return "Fill only summary and key_points; leave the other arrays empty"
	case TypeTrends:
		return "Focus on trends; summary and trends must be filled"
	case TypeViewpoints:
		return "Focus on viewpoints; summary and viewpoints must be filled"
	default:
		return "Fill every section the sources support"
	}
}

func userPrompt(topic string, typ Type, sources []registry.Source) string {
	blocks := make([]string, 0, len(sources))
	for _, src := range sources {
		published := "unknown"
		if !src.PublishedAt.IsZero() {
			published = src.PublishedAt.Format("2006-01-02")
		}
		body := src.Body
		if len(body) > promptBodyChars {
			body = body[:promptBodyChars]
		}
		blocks = append(blocks, fmt.Sprintf(
			"Title: %s\nURL: %s\nAuthors: %s\nPublished: %s\nCredibility: %.2f\nContent: %s",
			src.Title, src.URL, strings.Join(src.Authors, ", "), published, src.Credibility, body,
		))
	}
	return fmt.Sprintf("TOPIC: %q\nANALYSIS TYPE: %q\n\nSOURCES:\n%s", topic, typ, strings.Join(blocks, "\n\n"))
}

// sendRequest sends a chat completion request and returns the first choice,
// retrying transient failures with exponential backoff.
func (c *OpenAI) sendRequest(ctx context.Context, messages []Message) (string, error) {
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		content, retry, err := c.doRequest(ctx, jsonData)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retry || attempt == c.attempts-1 {
			return "", lastErr
		}
		select {
		case <-time.After(c.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (c *OpenAI) doRequest(ctx context.Context, body []byte) (content string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var openaiResp response
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", false, fmt.Errorf("no choices in response")
	}
	return openaiResp.Choices[0].Message.Content, false, nil
}

// stripCodeFence unwraps responses the model insists on fencing as ```json.
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
