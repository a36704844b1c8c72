package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/christopherklint97/focusd/internal/activity"
)

// verdict is the wire shape the model must return. The schema handed to
// the API is generated from it.
type verdict struct {
	Status              string  `json:"status" jsonschema:"enum=on_task,enum=off_task,enum=break"`
	ActivityDescription string  `json:"activity_description"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	Suggestion          string  `json:"suggestion"`
}

var verdictSchema = func() map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: false,
	}
	s := r.Reflect(&verdict{})
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("reflecting verdict schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("decoding verdict schema: %v", err))
	}
	return m
}()

// OpenAI classifies screenshots through any OpenAI-compatible chat
// completions endpoint with vision support.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

func NewOpenAI(apiKey, baseURL, model string, maxTokens int, logger *slog.Logger) *OpenAI {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (o *OpenAI) Analyze(ctx context.Context, screenshots []string, rules, history, calendarContext string) (*activity.Result, error) {
	var parts []openai.ChatCompletionContentPartUnionParam
	for _, path := range screenshots {
		data, err := os.ReadFile(path)
		if err != nil {
			o.logger.Debug("skipping unreadable screenshot", "path", path, "error", err)
			continue
		}
		url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no readable screenshots")
	}
	parts = append(parts, openai.TextContentPart(buildUserPrompt(len(parts))))

	systemPrompt := buildSystemPrompt(rules, history, calendarContext)

	o.logger.Debug("invoking vision model",
		"model", o.model,
		"screenshots", len(screenshots),
		"system_prompt_len", len(systemPrompt),
	)

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(o.model),
		MaxTokens: openai.Int(int64(o.maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(parts),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "focus_verdict",
					Schema: verdictSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}

	o.logger.Debug("vision model finished", "elapsed", time.Since(start))

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision response had no choices")
	}

	return parseVerdict(resp.Choices[0].Message.Content, o.logger)
}

func parseVerdict(text string, logger *slog.Logger) (*activity.Result, error) {
	text = stripFences(strings.TrimSpace(text))

	var v verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		logger.Error("failed to parse verdict", "error", err, "raw", truncate(text, 500))
		return nil, fmt.Errorf("parsing verdict: %w", err)
	}

	result := &activity.Result{
		Status:      activity.ParseStatus(v.Status),
		Description: v.ActivityDescription,
		Confidence:  v.Confidence,
		Reasoning:   v.Reasoning,
		Suggestion:  v.Suggestion,
		Timestamp:   time.Now(),
	}

	logger.Debug("verdict parsed",
		"status", result.Status,
		"activity", result.Description,
		"confidence", result.Confidence,
	)
	return result, nil
}

// stripFences removes a markdown code fence wrapper, which some models add
// despite the JSON-only instruction.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	text = strings.Join(lines[1:], "\n")
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
