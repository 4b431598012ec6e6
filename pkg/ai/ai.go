// Package ai defines the model-facing side of transcript generation: the
// messages built from slides, the structured answer expected back and the
// client interface the OpenAI and Ollama adapters implement.
package ai

import (
	"context"
)

// PartType tags a ContentPart.
type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
)

// ImageData is an image attached to a message.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// ContentPart is one piece of a slide message: text or an image.
type ContentPart struct {
	Type  PartType
	Text  string
	Image *ImageData
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart returns an image content part.
func ImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{Type: PartTypeImage, Image: &ImageData{MIMEType: mimeType, Data: data}}
}

// SlideMessage is the user message sent for a single slide.
type SlideMessage struct {
	SlideNumber int
	Parts       []ContentPart
}

// TranscriptSegment is the narration generated for one slide.
type TranscriptSegment struct {
	SlideNumber int    `json:"slide_number" jsonschema:"description=Number of the slide this segment narrates"`
	Title       string `json:"title" jsonschema:"description=Short title of the slide"`
	Transcript  string `json:"transcript" jsonschema:"description=Spoken narration for the slide"`
}

// TranscriptResponse is the structured answer requested from the model.
type TranscriptResponse struct {
	Segments []TranscriptSegment `json:"transcript_segments" jsonschema:"description=One segment per slide in the order the slides were given"`
}

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	MaxTokens     int      // Upper bound for generated tokens, 0 leaves it to the server
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	Requests       int     `json:"requests"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens limits the number of generated tokens.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// NewGenerateOptions applies opts on top of the defaults every adapter uses.
func NewGenerateOptions(model string, opts ...GenerateOption) GenerateOptions {
	options := GenerateOptions{
		Model:         model,
		SystemPrompts: []string{TranscriptSystemPrompt},
		Temperature:   0.3,
	}
	for _, o := range opts {
		o(&options)
	}
	return options
}

// TranscriptClient turns a group of slide messages into transcript segments.
type TranscriptClient interface {
	GenerateTranscript(
		ctx context.Context,
		messages []SlideMessage,
		opts ...GenerateOption,
	) ([]TranscriptSegment, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}
