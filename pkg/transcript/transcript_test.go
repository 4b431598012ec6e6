package transcript

import (
	"context"
	"errors"
	"image/color"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/slidescribe/backend/internal/util"
	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"
	"github.com/slidescribe/backend/pkg/pptx/pptxtest"
)

type fakeClient struct {
	mu    sync.Mutex
	calls [][]ai.SlideMessage
	fail  int
	err   error
}

func (c *fakeClient) GenerateTranscript(ctx context.Context, messages []ai.SlideMessage, opts ...ai.GenerateOption) ([]ai.TranscriptSegment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, messages)
	if c.fail > 0 {
		c.fail--
		return nil, c.err
	}
	out := make([]ai.TranscriptSegment, 0, len(messages))
	for _, m := range messages {
		out = append(out, ai.TranscriptSegment{SlideNumber: m.SlideNumber, Title: "t", Transcript: "narration"})
	}
	return out, nil
}

func (c *fakeClient) ResetMetrics()              {}
func (c *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestGeneratorRun(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	slides := []pptx.Slide{
		{Number: 1, Content: []pptx.ContentElement{pptx.Text("Title")}},
		{Number: 2, Content: []pptx.ContentElement{pptx.Text("Intro")}},
		{Number: 3, Content: []pptx.ContentElement{pptx.Text("Body")}},
		{Number: 4, Content: []pptx.ContentElement{pptx.Text("Outro")}},
		{Number: 5, Content: []pptx.ContentElement{pptx.Text("Learning Outcomes")}},
	}

	client := &fakeClient{}
	gen := NewGenerator(client, store, Options{SkipFirst: true})

	var results []GroupResult
	err := gen.Run(context.Background(), slides, func(r GroupResult) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(results))
	}
	for i, r := range results {
		if r.GroupNumber != i+1 {
			t.Fatalf("result %d has group number %d", i, r.GroupNumber)
		}
	}
	if len(results[0].Result) != 1 || results[0].Result[0].SlideNumber != 2 {
		t.Fatalf("unexpected first group %+v", results[0])
	}
	if len(results[1].Result) != 2 {
		t.Fatalf("unexpected second group %+v", results[1])
	}
	if results[2].Result == nil || len(results[2].Result) != 0 {
		t.Fatalf("expected empty non-nil result for skipped group, got %+v", results[2].Result)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(client.calls))
	}
}

func TestGeneratorRetries(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	slides := []pptx.Slide{{Number: 2, Content: []pptx.ContentElement{pptx.Text("Intro")}}}

	client := &fakeClient{fail: 1, err: errors.New("rate limited")}
	gen := NewGenerator(client, store, Options{Retries: 2, Backoff: util.ExponentialBackoff(time.Millisecond, time.Millisecond)})

	var got []GroupResult
	if err := gen.Run(context.Background(), slides, func(r GroupResult) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(client.calls) != 2 || len(got) != 1 {
		t.Fatalf("expected one retry and one result, got %d calls %d results", len(client.calls), len(got))
	}
}

func TestGeneratorStopsOnError(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	slides := slidesN(4)

	failure := errors.New("model unavailable")
	client := &fakeClient{fail: 10, err: failure}
	gen := NewGenerator(client, store, Options{Retries: 1})

	emitted := 0
	err := gen.Run(context.Background(), slides, func(GroupResult) error {
		emitted++
		return nil
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected %v, got %v", failure, err)
	}
	if emitted != 0 {
		t.Fatalf("expected nothing emitted, got %d", emitted)
	}
}

func TestGeneratorEmitError(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	client := &fakeClient{}
	gen := NewGenerator(client, store, Options{})

	stop := errors.New("client gone")
	err := gen.Run(context.Background(), slidesN(4), func(GroupResult) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected %v, got %v", stop, err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected Run to stop after first group, got %d calls", len(client.calls))
	}
}

func TestGeneratorCleanupImages(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	ref, _, err := store.Save(context.Background(), "slide2_a.jpeg", pptxtest.JPEG(2, 2, color.White))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	slides := []pptx.Slide{{Number: 2, Content: []pptx.ContentElement{pptx.Text("Intro"), pptx.Image(ref)}}}

	client := &fakeClient{}
	gen := NewGenerator(client, store, Options{CleanupImages: true})
	if err := gen.Run(context.Background(), slides, func(GroupResult) error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if parts := client.calls[0][0].Parts; len(parts) != 2 {
		t.Fatalf("expected text and image part, got %d", len(parts))
	}
	if _, err := os.Stat(ref); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be deleted, stat error = %v", ref, err)
	}
}
