package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/logger"

	"github.com/openai/openai-go/v3"
)

// GenerateTranscript sends one user message per slide and asks for a
// transcript_segments JSON object constrained by a JSON schema.
func (c *TranscriptOpenAIClient) GenerateTranscript(
	ctx context.Context,
	messages []ai.SlideMessage,
	opts ...ai.GenerateOption,
) ([]ai.TranscriptSegment, error) {
	if len(messages) == 0 {
		return []ai.TranscriptSegment{}, nil
	}

	options := ai.NewGenerateOptions(c.model, opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	for _, m := range messages {
		msgs = append(msgs, openai.UserMessage(contentParts(m)))
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "transcript_segments",
		Description: openai.String("Narration for each slide of the group"),
		Schema:      ai.GenerateSchema(&ai.TranscriptResponse{}),
		Strict:      openai.Bool(true),
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response from model")
	}
	content := response.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}

	segments, err := ai.ParseTranscript(content)
	if err != nil {
		return nil, err
	}
	logger.Debug("[Transcript] OpenAI response parsed", "slides", len(messages), "segments", len(segments), "duration_ms", duration)
	return segments, nil
}

func contentParts(m ai.SlideMessage) []openai.ChatCompletionContentPartUnionParam {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(fmt.Sprintf(ai.SlideHeader, m.SlideNumber)),
	}
	for _, p := range m.Parts {
		switch p.Type {
		case ai.PartTypeText:
			parts = append(parts, openai.TextContentPart(p.Text))
		case ai.PartTypeImage:
			if p.Image == nil {
				continue
			}
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: ai.DataURL(p.Image),
			}))
		}
	}
	return parts
}
