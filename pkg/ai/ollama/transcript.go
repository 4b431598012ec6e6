package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/logger"

	"github.com/ollama/ollama/api"
)

const defaultContext = 4096

// GenerateTranscript sends one user message per slide, with the slide's
// images attached, and enforces the transcript JSON schema through the
// request format.
func (c *TranscriptOllamaClient) GenerateTranscript(
	ctx context.Context,
	messages []ai.SlideMessage,
	opts ...ai.GenerateOption,
) ([]ai.TranscriptSegment, error) {
	if len(messages) == 0 {
		return []ai.TranscriptSegment{}, nil
	}

	options := ai.NewGenerateOptions(c.model, opts...)

	formatBytes, err := json.Marshal(ai.GenerateSchema(&ai.TranscriptResponse{}))
	if err != nil {
		return nil, err
	}
	var format json.RawMessage = formatBytes

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(messages))
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	for _, m := range messages {
		msgs = append(msgs, toMessage(m))
	}

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   format,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}

	tokens := contextSize(msgs)
	if tokens > defaultContext {
		req.Options["num_ctx"] = tokens
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	segments, err := ai.ParseTranscript(final.Message.Content)
	if err != nil {
		return nil, err
	}
	logger.Debug("[Transcript] Ollama response parsed", "slides", len(messages), "segments", len(segments), "num_ctx", tokens)
	return segments, nil
}

func toMessage(m ai.SlideMessage) api.Message {
	texts := []string{fmt.Sprintf(ai.SlideHeader, m.SlideNumber)}
	var images []api.ImageData
	for _, p := range m.Parts {
		switch p.Type {
		case ai.PartTypeText:
			texts = append(texts, p.Text)
		case ai.PartTypeImage:
			if p.Image != nil {
				images = append(images, api.ImageData(p.Image.Data))
			}
		}
	}
	return api.Message{
		Role:    "user",
		Content: strings.Join(texts, "\n"),
		Images:  images,
	}
}

// contextSize estimates the context window the request needs, with headroom
// for the answer.
func contextSize(msgs []api.Message) int {
	count := ai.NewTokenCounter()

	tokens := 200
	for _, m := range msgs {
		tokens += count(m.Content)
		tokens += len(m.Images) * ai.ImageTokens
	}
	return tokens
}
