// Package transcript turns extracted slides into narration. Slides are
// grouped, each group is sent to an ai.TranscriptClient and the segments of
// every group are handed to the caller as soon as they arrive.
package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/slidescribe/backend/internal/util"
	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"
)

const (
	DefaultGroupSize  = 2
	DefaultSkipMarker = "Learning Outcomes"
	DefaultRetries    = 3
)

// DefaultBackoff waits one second before the first retry of a group request
// and at most ten seconds between later ones.
var DefaultBackoff = util.ExponentialBackoff(time.Second, 10*time.Second)

// Options configures how slides are grouped and turned into messages.
type Options struct {
	// GroupSize is the number of consecutive slides sent in one request.
	GroupSize int
	// MaxTokens splits a group further when its estimated size exceeds it.
	// Zero disables the check.
	MaxTokens int
	// SkipFirst leaves out slide 1, usually the title slide.
	SkipFirst bool
	// SkipMarkers leaves out slides carrying a text element equal to one of
	// them. Nil selects DefaultSkipMarker, an empty slice disables skipping.
	SkipMarkers []string
	// CleanupImages deletes a group's images from the store once its
	// transcript has been emitted.
	CleanupImages bool
	// Retries is the number of attempts per group request.
	Retries int
	// Backoff spaces the attempts. Nil selects DefaultBackoff.
	Backoff util.Backoff
	// Generate is passed through to the client.
	Generate []ai.GenerateOption
}

func (o Options) withDefaults() Options {
	if o.GroupSize <= 0 {
		o.GroupSize = DefaultGroupSize
	}
	if o.SkipMarkers == nil {
		o.SkipMarkers = []string{DefaultSkipMarker}
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.Backoff == nil {
		o.Backoff = DefaultBackoff
	}
	return o
}

// GroupResult is the transcript of one slide group.
type GroupResult struct {
	GroupNumber int                    `json:"groupNumber"`
	Result      []ai.TranscriptSegment `json:"result"`
}

// Generator produces transcripts group by group.
type Generator struct {
	client ai.TranscriptClient
	store  media.Store
	opts   Options
	count  ai.TokenCounter
}

// NewGenerator returns a Generator reading slide images from store.
func NewGenerator(client ai.TranscriptClient, store media.Store, opts Options) *Generator {
	return &Generator{
		client: client,
		store:  store,
		opts:   opts.withDefaults(),
		count:  ai.NewTokenCounter(),
	}
}

// Groups returns the groups Run would process for slides.
func (g *Generator) Groups(slides []pptx.Slide) [][]pptx.Slide {
	groups := GroupSlides(slides, g.opts.GroupSize)
	if g.opts.MaxTokens > 0 {
		groups = SplitByTokens(groups, g.opts.MaxTokens, g.count)
	}
	return groups
}

// Run processes the groups of slides in order and calls emit with each
// result. Groups without any usable content yield an empty result. Run stops
// at the first failing request or emit.
func (g *Generator) Run(ctx context.Context, slides []pptx.Slide, emit func(GroupResult) error) error {
	groups := g.Groups(slides)
	logger.Debug("[Transcript] Generating", "slides", len(slides), "groups", len(groups))

	for i, group := range groups {
		number := i + 1

		messages, err := BuildMessages(ctx, g.store, group, g.opts)
		if err != nil {
			return err
		}

		segments := []ai.TranscriptSegment{}
		if len(messages) > 0 {
			start := time.Now()
			segments, err = util.RetryWithBackoff(ctx, g.opts.Retries, g.opts.Backoff,
				func(ctx context.Context) ([]ai.TranscriptSegment, error) {
					return g.client.GenerateTranscript(ctx, messages, g.opts.Generate...)
				},
			)
			if err != nil {
				return fmt.Errorf("transcript for group %d: %w", number, err)
			}
			logger.Info("[Transcript] Group done", "group", number, "slides", len(messages), "segments", len(segments), "duration", time.Since(start))
		} else {
			logger.Debug("[Transcript] Group has no content", "group", number)
		}

		if err := emit(GroupResult{GroupNumber: number, Result: segments}); err != nil {
			return err
		}

		if g.opts.CleanupImages {
			g.cleanup(ctx, group)
		}
	}
	return nil
}

func (g *Generator) cleanup(ctx context.Context, group []pptx.Slide) {
	for _, slide := range group {
		for _, el := range slide.Content {
			if el.Type != pptx.ContentTypeImage {
				continue
			}
			if err := g.store.Delete(ctx, el.Content); err != nil {
				logger.Warn("[Transcript] Could not delete image", "slide", slide.Number, "ref", el.Content, "err", err)
			}
		}
	}
}
