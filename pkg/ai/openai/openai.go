package openai

import (
	"math"
	"sync"

	"github.com/slidescribe/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// TranscriptOpenAIClient generates transcripts with an OpenAI compatible chat
// completions API.
//
// A TranscriptOpenAIClient should be created using NewTranscriptOpenAIClient.
type TranscriptOpenAIClient struct {
	model   string
	chatURL string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewTranscriptOpenAIClientParams defines the configuration parameters for
// creating a new TranscriptOpenAIClient.
//
// ChatURL and ChatKey configure the chat/completion API endpoint. An empty
// ChatURL uses the official API. MaxConcurrentRequests bounds parallel
// requests across all callers of the client.
type NewTranscriptOpenAIClientParams struct {
	Model   string
	ChatURL string
	ChatKey string

	MaxConcurrentRequests int64
}

// NewTranscriptOpenAIClient creates a new client.
//
// Example:
//
//	client := openai.NewTranscriptOpenAIClient(openai.NewTranscriptOpenAIClientParams{
//		Model:   "gpt-4o",
//		ChatKey: os.Getenv("AI_CHAT_KEY"),
//	})
//	segments, err := client.GenerateTranscript(ctx, messages)
func NewTranscriptOpenAIClient(
	params NewTranscriptOpenAIClientParams,
) *TranscriptOpenAIClient {
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 1
	}

	return &TranscriptOpenAIClient{
		model:   params.Model,
		chatURL: params.ChatURL,

		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *TranscriptOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *TranscriptOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *TranscriptOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.Requests++
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs

	if c.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(c.metrics.TotalTokens) * 1000.0) / float64(c.metrics.DurationMs)
		c.metrics.TokenPerSecond = float32(math.Round(tokensPerSecond*100) / 100)
	}
}
