package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

const parsePrompt = `Parse the user message into JSON with these keys (only return valid JSON):
action: one of [add, remove, show, menu, checkout, name, address, update, clear, unknown]
item: item name (string) if applicable
size: small|medium|large if applicable
qty: integer if applicable
index: integer (1-based) for cart item references if applicable
name: user's name if user provided
address: delivery/pickup address if user provided

Message: %q

Return only JSON.`

var errEmptyModelReply = errors.New("model returned no text")

// contentGenerator is the slice of the genai client the parser uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiParser asks a Gemini model to extract the intent and falls back to
// another parser whenever the model call or its JSON fails.
type GeminiParser struct {
	models   contentGenerator
	model    string
	fallback IntentParser
	logger   *slog.Logger
}

// NewGeminiParser creates a model-backed parser. A nil fallback uses the
// heuristic parser.
func NewGeminiParser(ctx context.Context, apiKey, model string, fallback IntentParser, logger *slog.Logger) (*GeminiParser, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiParser(client.Models, model, fallback, logger), nil
}

func newGeminiParser(models contentGenerator, model string, fallback IntentParser, logger *slog.Logger) *GeminiParser {
	if model == "" {
		model = defaultGeminiModel
	}
	if fallback == nil {
		fallback = NewHeuristicParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiParser{models: models, model: model, fallback: fallback, logger: logger}
}

// Parse returns the model's reading of text, or the fallback's.
func (p *GeminiParser) Parse(ctx context.Context, text string) (ParsedIntent, error) {
	intent, err := p.ask(ctx, text)
	if err != nil {
		p.logger.Warn("gemini intent parse failed, using fallback", "model", p.model, "error", err)
		return p.fallback.Parse(ctx, text)
	}
	return intent, nil
}

func (p *GeminiParser) ask(ctx context.Context, text string) (ParsedIntent, error) {
	temperature := float32(0)
	resp, err := p.models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(fmt.Sprintf(parsePrompt, text), genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temperature,
		},
	)
	if err != nil {
		return ParsedIntent{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return ParsedIntent{}, errEmptyModelReply
	}
	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return ParsedIntent{}, errEmptyModelReply
	}
	return decodeModelIntent(raw)
}

// decodeModelIntent accepts the JSON object, optionally wrapped in a
// markdown code fence.
func decodeModelIntent(raw string) (ParsedIntent, error) {
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var intent ParsedIntent
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &intent); err != nil {
		return ParsedIntent{}, fmt.Errorf("decode model intent: %w", err)
	}
	intent.Action = Action(strings.ToLower(strings.TrimSpace(string(intent.Action))))
	if intent.Action == "cart" {
		intent.Action = ActionShow
	}
	if !intent.Action.Known() {
		return ParsedIntent{}, fmt.Errorf("model returned unknown action %q", intent.Action)
	}
	intent.Size = strings.ToLower(strings.TrimSpace(intent.Size))
	if intent.Action == ActionAdd {
		if intent.Qty == 0 {
			intent.Qty = 1
		}
		if intent.Size == "" {
			intent.Size = defaultSize
		}
	}
	return intent, nil
}
